package users

import (
	"errors"
	"testing"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"
	"tradepos-backend/internal/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndLogin(t *testing.T) {
	db := testdb.New(t)
	admin, err := auth.BootstrapAdmin(db, "Owner", "owner@example.com", "secret123")
	require.NoError(t, err)
	sess := auth.Session{UserID: admin.ID, UserName: admin.Name, Role: admin.Role}

	_, err = Create(db, sess, CreateInput{Name: "Mai", Email: "mai@example.com", Password: "pw", Role: models.RoleCashier})
	assert.True(t, errors.Is(err, apperr.ErrValidation), "short password")

	_, err = Create(db, sess, CreateInput{Name: "Mai", Email: "mai@example.com", Password: "cashier1", Role: "boss"})
	assert.True(t, errors.Is(err, apperr.ErrValidation), "unknown role")

	u, err := Create(db, sess, CreateInput{Name: "Mai", Email: " MAI@example.com ", Password: "cashier1", Role: models.RoleCashier})
	require.NoError(t, err)
	assert.Equal(t, "mai@example.com", u.Email)

	_, err = Create(db, sess, CreateInput{Name: "Mai 2", Email: "mai@example.com", Password: "cashier1", Role: models.RoleCashier})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	_, err = auth.Authenticate(db, "mai@example.com", "cashier1")
	require.NoError(t, err)

	require.NoError(t, ResetPassword(db, sess, u.ID, "newpass1"))
	_, err = auth.Authenticate(db, "mai@example.com", "cashier1")
	assert.Error(t, err)
	_, err = auth.Authenticate(db, "mai@example.com", "newpass1")
	assert.NoError(t, err)

	inactive := false
	_, err = Update(db, sess, u.ID, UpdateInput{Active: &inactive})
	require.NoError(t, err)
	_, err = auth.Authenticate(db, "mai@example.com", "newpass1")
	assert.Error(t, err, "disabled users cannot log in")
}

func TestLastAdminIsProtected(t *testing.T) {
	db := testdb.New(t)
	admin, err := auth.BootstrapAdmin(db, "Owner", "owner@example.com", "secret123")
	require.NoError(t, err)
	sess := auth.Session{UserID: admin.ID, UserName: admin.Name, Role: admin.Role}

	viewer := models.RoleViewer
	_, err = Update(db, sess, admin.ID, UpdateInput{Role: &viewer})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	second, err := Create(db, sess, CreateInput{Name: "Second", Email: "second@example.com", Password: "secret123", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = Update(db, sess, admin.ID, UpdateInput{Role: &viewer})
	require.NoError(t, err)

	off := false
	_, err = Update(db, sess, second.ID, UpdateInput{Active: &off})
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}
