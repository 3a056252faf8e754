package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradepos-backend/internal/models"
	"tradepos-backend/internal/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakePublisher struct {
	fail map[string]bool // topics that fail
	got  []models.OutboxEvent
}

func (f *fakePublisher) Publish(_ context.Context, ev models.OutboxEvent) error {
	if f.fail[ev.Topic] {
		return errors.New("broker unavailable")
	}
	f.got = append(f.got, ev)
	return nil
}

func enqueue(t *testing.T, db *gorm.DB, topic string, id int) {
	t.Helper()
	require.NoError(t, Enqueue(db, topic, map[string]int{"sale_id": id}))
	// created_at ordering needs distinct timestamps
	time.Sleep(2 * time.Millisecond)
}

func TestEnqueueRollsBackWithTransaction(t *testing.T) {
	db := testdb.New(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, Enqueue(tx, TopicSaleCompleted, map[string]int{"sale_id": 1}))
		return errors.New("checkout failed")
	})
	require.Error(t, err)

	list, err := Pending(db, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDispatchPublishesInOrder(t *testing.T) {
	db := testdb.New(t)
	enqueue(t, db, TopicSaleCompleted, 1)
	enqueue(t, db, TopicSaleReturned, 1)
	enqueue(t, db, TopicSaleCompleted, 2)

	pub := &fakePublisher{}
	d := &Dispatcher{DB: db, Publisher: pub}

	n, err := d.DispatchOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, pub.got, 3)
	assert.Equal(t, TopicSaleReturned, pub.got[1].Topic)
	assert.JSONEq(t, `{"sale_id":2}`, pub.got[2].Payload)

	n, err = d.DispatchOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDispatchStopsAtFailureAndRetries(t *testing.T) {
	db := testdb.New(t)
	enqueue(t, db, TopicSaleCompleted, 1)
	enqueue(t, db, TopicSaleReturned, 1)
	enqueue(t, db, TopicSaleCompleted, 2)

	pub := &fakePublisher{fail: map[string]bool{TopicSaleReturned: true}}
	d := &Dispatcher{DB: db, Publisher: pub, MaxAttempts: 2}

	n, err := d.DispatchOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var failed models.OutboxEvent
	require.NoError(t, db.Where("topic = ?", TopicSaleReturned).First(&failed).Error)
	assert.Equal(t, 1, failed.Attempts)
	assert.Equal(t, "broker unavailable", failed.LastError)
	assert.Nil(t, failed.PublishedAt)

	// second failure exhausts the attempts, after that the queue moves on
	_, err = d.DispatchOnce(context.Background())
	require.NoError(t, err)
	n, err = d.DispatchOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, pub.got, 2)
}

func TestRunStopsOnCancel(t *testing.T) {
	db := testdb.New(t)
	enqueue(t, db, TopicSaleCompleted, 1)

	pub := &fakePublisher{}
	d := &Dispatcher{DB: db, Publisher: pub, Interval: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		list, err := Pending(db, 10)
		return err == nil && len(list) == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
