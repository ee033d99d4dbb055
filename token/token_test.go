package token_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/reflexhq/reflex/token"
)

const corr = "7da9dd90-9f41-4b04-8f2e-7f5e9f6cf861"

func TestRoundTrip(t *testing.T) {
	tok := token.New("orders", corr).WithJobID("sendReceipt")

	parsed, err := token.Parse(tok.String())
	if err != nil {
		t.Fatalf("Parse(%q) returned error: %v", tok.String(), err)
	}
	if parsed.Source != "orders" {
		t.Errorf("Source = %q, want %q", parsed.Source, "orders")
	}
	if parsed.CorrelationID != corr {
		t.Errorf("CorrelationID = %q, want %q", parsed.CorrelationID, corr)
	}
	if parsed.JobID != "sendReceipt" {
		t.Errorf("JobID = %q, want %q", parsed.JobID, "sendReceipt")
	}
}

func TestRoundTripWithoutJobID(t *testing.T) {
	tok := token.New("orders", corr)

	if got, want := tok.String(), "orders."+corr; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}

	parsed, err := token.Parse(tok.String())
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if parsed.JobID != "" {
		t.Errorf("JobID = %q, want empty", parsed.JobID)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"garbage",
		"orders",
		"orders." + corr + ".job.extra",
		"." + corr,
		"orders.",
		"orders.." + corr,
		"orders.not-a-uuid",
		"orders.not-a-uuid.job",
		"orders." + corr + ".",
	}

	for _, in := range cases {
		_, err := token.Parse(in)
		if err == nil {
			t.Errorf("Parse(%q) succeeded, want error", in)
			continue
		}
		if !errors.Is(err, token.ErrMalformed) {
			t.Errorf("Parse(%q) error = %v, want ErrMalformed", in, err)
		}
	}
}

func TestIsValidAgreesWithParse(t *testing.T) {
	cases := []string{
		"orders." + corr,
		"orders." + corr + ".job",
		"garbage",
		"",
		"orders.not-a-uuid",
	}

	for _, in := range cases {
		_, err := token.Parse(in)
		if got, want := token.IsValid(in), err == nil; got != want {
			t.Errorf("IsValid(%q) = %v, Parse error = %v", in, got, err)
		}
	}
}

func TestNewMintsUUID(t *testing.T) {
	tok := token.New("orders", "")

	if _, err := uuid.Parse(tok.CorrelationID); err != nil {
		t.Fatalf("minted correlation id %q is not a uuid: %v", tok.CorrelationID, err)
	}

	other := token.New("orders", "")
	if other.CorrelationID == tok.CorrelationID {
		t.Error("two minted tokens share a correlation id")
	}
}

func TestNewKeepsSuppliedCorrelationID(t *testing.T) {
	tok := token.New("orders", corr)
	if tok.CorrelationID != corr {
		t.Fatalf("CorrelationID = %q, want %q", tok.CorrelationID, corr)
	}
}

func TestDerivationsPreserveCorrelationID(t *testing.T) {
	tok := token.New("orders", corr)

	withJob := tok.WithJobID("chargeCard")
	if withJob.CorrelationID != corr {
		t.Errorf("WithJobID changed correlation id to %q", withJob.CorrelationID)
	}
	if withJob.JobID != "chargeCard" {
		t.Errorf("WithJobID JobID = %q, want %q", withJob.JobID, "chargeCard")
	}

	moved := withJob.WithSource("billing")
	if moved.CorrelationID != corr {
		t.Errorf("WithSource changed correlation id to %q", moved.CorrelationID)
	}
	if moved.Source != "billing" {
		t.Errorf("WithSource Source = %q, want %q", moved.Source, "billing")
	}

	// The original is a value; derivations must not mutate it.
	if tok.JobID != "" || tok.Source != "orders" {
		t.Errorf("derivation mutated the original token: %+v", tok)
	}
}

func TestIsZero(t *testing.T) {
	var zero token.Token
	if !zero.IsZero() {
		t.Error("zero token reported non-zero")
	}
	if token.New("orders", "").IsZero() {
		t.Error("minted token reported zero")
	}
}
