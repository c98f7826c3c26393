package transport

import "testing"

func TestRegistryParityPartitioning(t *testing.T) {
	odd := NewRegistry(ParityOdd)
	even := NewRegistry(ParityEven)

	for i := 0; i < 5; i++ {
		if id := odd.Allocate(); id%2 == 0 {
			t.Errorf("odd registry allocated even id %d", id)
		}
		if id := even.Allocate(); id%2 != 0 {
			t.Errorf("even registry allocated odd id %d", id)
		}
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry(ParityOdd)
	id := r.Allocate()

	if r.IsLocalHalfClosed(id) {
		t.Fatal("freshly allocated stream should not be half-closed")
	}

	if done := r.MarkLocalEOS(id); done {
		t.Fatal("single-sided EOS should not close the stream")
	}
	if !r.IsLocalHalfClosed(id) {
		t.Fatal("expected local half-close after MarkLocalEOS")
	}

	if done := r.MarkRemoteEOS(id); !done {
		t.Fatal("expected stream closed after both sides EOS")
	}

	r.Release(id)
	if r.Known(id) {
		t.Fatal("expected id to be forgotten after Release")
	}
}

func TestRegistryRemoteFirst(t *testing.T) {
	r := NewRegistry(ParityEven)
	id := r.Allocate()

	if done := r.MarkRemoteEOS(id); done {
		t.Fatal("single-sided remote EOS should not close the stream")
	}
	if done := r.MarkLocalEOS(id); !done {
		t.Fatal("expected stream closed once local side also EOS")
	}
}

func TestRegistryObserveDoesNotOverwrite(t *testing.T) {
	r := NewRegistry(ParityOdd)
	id := r.Allocate()
	r.MarkLocalEOS(id)
	r.Observe(id) // should be a no-op for an already-known id
	if !r.IsLocalHalfClosed(id) {
		t.Fatal("Observe should not reset existing stream state")
	}
}
