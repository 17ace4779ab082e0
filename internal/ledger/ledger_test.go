package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordPlayAccumulates(t *testing.T) {
	l := New()

	l.RecordPlay(1, 100)
	l.RecordPlay(1, 50)

	assert.Equal(t, 150, l.Snapshot()[1])
}

func TestRecordPlayIgnoresNegative(t *testing.T) {
	l := New()

	l.RecordPlay(1, 100)
	l.RecordPlay(1, -30)

	assert.Equal(t, 100, l.Snapshot()[1])
}

func TestSnapshotIsACopy(t *testing.T) {
	l := New()
	l.RecordPlay(1, 100)

	snapshot := l.Snapshot()
	snapshot[1] = 9999

	assert.Equal(t, 100, l.Snapshot()[1], "mutating a snapshot must not affect the ledger")
}

func TestReset(t *testing.T) {
	l := New()
	l.RecordPlay(1, 100)
	l.RecordPlay(2, 40)

	l.Reset()

	assert.Empty(t, l.Snapshot())
	assert.Equal(t, 0, l.TotalSeconds())
}

func TestTotalSeconds(t *testing.T) {
	l := New()
	l.RecordPlay(1, 100)
	l.RecordPlay(2, 40)
	l.RecordPlay(3, 0)

	assert.Equal(t, 140, l.TotalSeconds())
}

func TestReplace(t *testing.T) {
	l := New()
	l.RecordPlay(1, 999)

	l.Replace(map[int]int{2: 300, 3: 0})

	snapshot := l.Snapshot()
	assert.Equal(t, 300, snapshot[2])
	assert.NotContains(t, snapshot, 1)
	assert.NotContains(t, snapshot, 3, "zero totals are not restored")
}

func TestConcurrentRecordAndSnapshot(t *testing.T) {
	l := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				l.RecordPlay(1, 1)
				_ = l.Snapshot()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1600, l.Snapshot()[1])
}
