package invoice

import (
	"regexp"
	"testing"
	"time"

	"tradepos-backend/internal/models"
	"tradepos-backend/internal/testdb"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var numberRe = regexp.MustCompile(`^INV-\d{8}-\d{4}-[0-9A-F]{4}$`)

func storeSale(t *testing.T, db *gorm.DB, number string) {
	t.Helper()
	sale := models.Sale{
		InvoiceNumber: number,
		ShiftID:       1,
		CashierID:     1,
		Subtotal:      decimal.NewFromInt(1),
		Total:         decimal.NewFromInt(1),
		PaymentType:   models.PaymentCash,
		Currency:      "EGP",
		Status:        models.SaleCompleted,
	}
	require.NoError(t, db.Create(&sale).Error)
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, "018E", Checksum("ABC"))
	assert.Equal(t, "1AB2", Checksum("2026101500014821"))
	assert.Equal(t, "0000", Checksum(""))
}

func TestFormatAndParse(t *testing.T) {
	day := time.Date(2026, 10, 15, 13, 0, 0, 0, time.Local)
	n := Format(day, 1, "4821")
	assert.Equal(t, "INV-20261015-0001-1AB2", n)
	assert.True(t, Validate(n))

	parts, err := Parse(n)
	require.NoError(t, err)
	assert.Equal(t, 1, parts.Sequence)
	assert.Equal(t, "1AB2", parts.Checksum)
	assert.Equal(t, "2026-10-15", parts.Date.Format("2006-01-02"))
}

func TestValidateChecksFormatOnly(t *testing.T) {
	assert.True(t, Validate("INV-20260101-0007-FFFF"))
	assert.False(t, Validate("INV-20260101-0007-ffff"))
	assert.False(t, Validate("INV-2026011-0007-FFFF"))
	assert.False(t, Validate("INV-20260101-0007"))
	assert.False(t, Validate("INV-FALLBACK-12345678-1234"))
}

func TestFallback(t *testing.T) {
	n := Fallback(time.UnixMilli(1760531234567))
	assert.Regexp(t, `^INV-FALLBACK-31234567-\d{4}$`, n)
	assert.True(t, IsFallback(n))
	assert.False(t, Validate(n))
}

func TestGenerateFormatAndDate(t *testing.T) {
	db := testdb.New(t)
	now := time.Now()

	n, err := Generate(db, now)
	require.NoError(t, err)
	assert.Regexp(t, numberRe, n)

	parts, err := Parse(n)
	require.NoError(t, err)
	assert.Equal(t, now.Format("20060102"), parts.Date.Format("20060102"))
}

func TestSerializedSequenceIsStrictlyIncreasing(t *testing.T) {
	db := testdb.New(t)
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.Local)

	prev := 0
	for i := 0; i < 6; i++ {
		var number string
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			number, err = Generate(tx, now.Add(time.Duration(i)*time.Hour))
			if err != nil {
				return err
			}
			storeSale(t, tx, number)
			return nil
		})
		require.NoError(t, err)

		parts, err := Parse(number)
		require.NoError(t, err)
		assert.Equal(t, prev+1, parts.Sequence)
		prev = parts.Sequence
	}
}

func TestCounterSeedsFromExistingNumbers(t *testing.T) {
	db := testdb.New(t)
	storeSale(t, db, "INV-20261003-0040-AAAA")
	storeSale(t, db, "INV-20261012-0041-BBBB")
	storeSale(t, db, "INV-20260930-0900-CCCC") // previous month

	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.Local)
	highest, err := HighestSequence(db, now)
	require.NoError(t, err)
	assert.Equal(t, 41, highest)

	seq, err := NextSequence(db, now)
	require.NoError(t, err)
	assert.Equal(t, 42, seq)

	seq, err = NextSequence(db, now)
	require.NoError(t, err)
	assert.Equal(t, 43, seq)
}

func TestHighestSequencePastFourDigits(t *testing.T) {
	db := testdb.New(t)
	storeSale(t, db, "INV-20261020-9999-AAAA")
	storeSale(t, db, "INV-20261020-10000-BBBB")
	storeSale(t, db, "INV-20261019-10001-CCCC")

	highest, err := HighestSequence(db, time.Date(2026, 10, 21, 9, 0, 0, 0, time.Local))
	require.NoError(t, err)
	assert.Equal(t, 10001, highest)
}

func TestSequenceRestartsEachMonth(t *testing.T) {
	db := testdb.New(t)

	oct, err := NextSequence(db, time.Date(2026, 10, 31, 23, 0, 0, 0, time.Local))
	require.NoError(t, err)
	nov, err := NextSequence(db, time.Date(2026, 11, 1, 8, 0, 0, 0, time.Local))
	require.NoError(t, err)

	assert.Equal(t, 1, oct)
	assert.Equal(t, 1, nov)
}

func TestPeekDoesNotAllocate(t *testing.T) {
	db := testdb.New(t)
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.Local)

	p1, err := Parse(Peek(db, now))
	require.NoError(t, err)
	p2, err := Parse(Peek(db, now))
	require.NoError(t, err)
	assert.Equal(t, 1, p1.Sequence)
	assert.Equal(t, 1, p2.Sequence)

	_, err = NextSequence(db, now)
	require.NoError(t, err)
	p3, err := Parse(Peek(db, now))
	require.NoError(t, err)
	assert.Equal(t, 2, p3.Sequence)
}
