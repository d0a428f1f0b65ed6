package projection_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/reachops/outreach-gateway/internal/service/projection"
)

func TestClassifyTransient(t *testing.T) {
	cases := []error{
		errors.New("dial tcp: i/o timeout"),
		errors.New("temporary failure in name resolution"),
		errors.New("connection refused"),
	}
	for _, err := range cases {
		cat, retryable := projection.Classify(err)
		if cat != projection.CategoryTransient {
			t.Fatalf("Classify(%v) category = %s, want transient", err, cat)
		}
		if !retryable {
			t.Fatalf("Classify(%v) retryable = false, want true", err)
		}
	}
}

func TestClassifyTerminal(t *testing.T) {
	cases := []error{
		errors.New("pq: duplicate key value violates unique constraint"),
		errors.New("invalid input syntax for type uuid"),
		fmt.Errorf("resolve campaign c-9: %w", projection.ErrCampaignNotFound),
		errors.New("lead event k1: missing campaign_id"),
	}
	for _, err := range cases {
		cat, retryable := projection.Classify(err)
		if cat != projection.CategoryTerminal {
			t.Fatalf("Classify(%v) category = %s, want terminal", err, cat)
		}
		if retryable {
			t.Fatalf("Classify(%v) retryable = true, want false", err)
		}
	}
}

func TestClassifyUnknown(t *testing.T) {
	cat, retryable := projection.Classify(errors.New("something unexpected"))
	if cat != projection.CategoryUnknown {
		t.Fatalf("category = %s, want unknown", cat)
	}
	if retryable {
		t.Fatalf("unknown failures must not be retryable")
	}
}

func TestClassifyNil(t *testing.T) {
	cat, retryable := projection.Classify(nil)
	if cat != projection.CategoryUnknown || retryable {
		t.Fatalf("Classify(nil) = (%s, %v), want (unknown, false)", cat, retryable)
	}
}
