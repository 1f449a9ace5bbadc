package simulator

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservable_SubscribeGetsCurrentValue(t *testing.T) {
	o := NewObservable(7)

	ch, cancel := o.Subscribe()
	defer cancel()

	select {
	case v := <-ch:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("no initial value delivered")
	}
}

func TestObservable_SlowSubscriberSeesLatestOnly(t *testing.T) {
	o := NewObservable(0)

	ch, cancel := o.Subscribe()
	defer cancel()

	for i := 1; i <= 100; i++ {
		o.Set(i)
	}

	require.Len(t, ch, 1)
	assert.Equal(t, 100, <-ch)
}

func TestObservable_UpdateIsAtomic(t *testing.T) {
	o := NewObservable(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				o.Update(func(v int) int { return v + 1 })
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5000, o.Value())
}

func TestObservable_IndependentSubscribers(t *testing.T) {
	o := NewObservable("a")

	ch1, cancel1 := o.Subscribe()
	ch2, cancel2 := o.Subscribe()
	defer cancel2()
	assert.Equal(t, 2, o.Subscribers())

	<-ch1
	<-ch2
	cancel1()
	assert.Equal(t, 1, o.Subscribers())

	_, open := <-ch1
	assert.False(t, open, "cancelled subscription should be closed")

	o.Set("b")
	assert.Equal(t, "b", <-ch2)
}

func TestObservable_CloseClosesSubscribers(t *testing.T) {
	o := NewObservable(1)
	ch, cancel := o.Subscribe()
	<-ch

	o.Close()
	cancel() // safe after Close

	_, open := <-ch
	assert.False(t, open)

	o.Set(2)
	assert.Equal(t, 2, o.Value(), "value stays writable after Close")

	late, _ := o.Subscribe()
	_, open = <-late
	assert.False(t, open, "subscribing after Close yields a closed channel")
}
