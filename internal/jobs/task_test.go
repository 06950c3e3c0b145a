package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGenerateID(t *testing.T) {
	a := GenerateID("edit-")
	b := GenerateID("edit-")
	if !strings.HasPrefix(a, "edit-") {
		t.Errorf("missing prefix: %q", a)
	}
	if len(a) != len("edit-")+32 {
		t.Errorf("unexpected length %d for %q", len(a), a)
	}
	if a == b {
		t.Error("expected distinct IDs")
	}
}

func TestTask_Result(t *testing.T) {
	task := Start(context.Background(), "t-", func(ctx context.Context) (string, error) {
		return "done", nil
	})
	got, err := task.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got != "done" {
		t.Errorf("got %q, want done", got)
	}
	select {
	case <-task.Done():
	default:
		t.Error("Done channel not closed after Wait returned")
	}
}

func TestTask_Error(t *testing.T) {
	boom := errors.New("boom")
	task := Start(context.Background(), "t-", func(ctx context.Context) (int, error) {
		return 0, boom
	})
	if _, err := task.Wait(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestTask_CancelReachesFunction(t *testing.T) {
	started := make(chan struct{})
	task := Start(context.Background(), "t-", func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})
	<-started
	task.Cancel()

	_, err := task.Wait(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	task.Cancel() // idempotent
}

func TestTask_DetachedFromCallerCancellation(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	release := make(chan struct{})
	task := Start(parent, "t-", func(ctx context.Context) (string, error) {
		select {
		case <-release:
			return "finished", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	cancelParent()
	waitCtx, cancelWait := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelWait()
	if _, err := task.Wait(waitCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected early Wait to time out, got %v", err)
	}

	close(release)
	got, err := task.Wait(context.Background())
	if err != nil {
		t.Fatalf("task should survive caller cancellation: %v", err)
	}
	if got != "finished" {
		t.Errorf("got %q", got)
	}
}
