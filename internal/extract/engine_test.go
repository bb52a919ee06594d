package extract

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/credentials"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

type scriptedClient struct {
	mu    sync.Mutex
	calls []string
	reply func(call int, cred credentials.Credential, ctx context.Context) (llm.Response, error)
}

func (c *scriptedClient) ModelName() string { return "test-model" }

func (c *scriptedClient) Generate(ctx context.Context, cred credentials.Credential, _ llm.Request) (llm.Response, error) {
	c.mu.Lock()
	c.calls = append(c.calls, cred.Name)
	n := len(c.calls)
	c.mu.Unlock()
	return c.reply(n, cred, ctx)
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func twoKeys() *credentials.Pool {
	return credentials.New(
		credentials.Credential{Name: "KEY_1", APIKey: "aaaa1111"},
		credentials.Credential{Name: "KEY_2", APIKey: "bbbb2222"},
	)
}

func seconds(ns ...int) []time.Duration {
	out := make([]time.Duration, len(ns))
	for i, n := range ns {
		out[i] = time.Duration(n) * time.Second
	}
	return out
}

func TestExtractExhaustsEveryCredentialOnTimeouts(t *testing.T) {
	client := &scriptedClient{reply: func(_ int, _ credentials.Credential, ctx context.Context) (llm.Response, error) {
		<-ctx.Done()
		return llm.Response{}, ctx.Err()
	}}
	sleeper := &recordingSleeper{}
	e := NewEngine(client, twoKeys(), Config{Timeout: 5 * time.Millisecond}, nil, WithSleeper(sleeper))

	res, ok := e.Extract(context.Background(), nil, nil)
	if ok || res != nil {
		t.Fatalf("Extract = %+v, %v; want nil, false", res, ok)
	}
	if got := client.callCount(); got != 10 {
		t.Fatalf("attempts = %d, want 10", got)
	}
	want := seconds(2, 4, 8, 16, 32, 2, 4, 8, 16)
	if !reflect.DeepEqual(sleeper.delays, want) {
		t.Errorf("delays = %v, want %v", sleeper.delays, want)
	}
	for i, name := range client.calls {
		wantName := "KEY_1"
		if i >= 5 {
			wantName = "KEY_2"
		}
		if name != wantName {
			t.Errorf("call %d used %s, want %s", i, name, wantName)
		}
	}
}

func TestExtractRotatesToNextCredential(t *testing.T) {
	client := &scriptedClient{reply: func(call int, cred credentials.Credential, _ context.Context) (llm.Response, error) {
		if cred.Name == "KEY_2" && call == 7 {
			return llm.Response{Text: `[{"Vendor Name":"acme","Invoice No":"1"}]`, Usage: llm.Usage{InputTokens: 10, OutputTokens: 4}}, nil
		}
		return llm.Response{}, errors.New("quota exceeded")
	}}
	sleeper := &recordingSleeper{}
	e := NewEngine(client, twoKeys(), Config{}, nil, WithSleeper(sleeper))

	res, ok := e.Extract(context.Background(), nil, nil)
	if !ok {
		t.Fatal("expected success on the second credential")
	}
	if res.Attempts != 7 || res.Credential != "KEY_2" {
		t.Errorf("attempts = %d credential = %s", res.Attempts, res.Credential)
	}
	if res.Model != "test-model" || res.Usage.InputTokens != 10 {
		t.Errorf("result = %+v", res)
	}
	if want := seconds(2, 4, 8, 16, 32, 2); !reflect.DeepEqual(sleeper.delays, want) {
		t.Errorf("delays = %v, want %v", sleeper.delays, want)
	}
}

func TestExtractRetriesMalformedReplies(t *testing.T) {
	replies := []string{"not json", `"just a string"`, "```json\n{\"vendor_name\": \"  acme traders \", \"Invoice No\": \"A-1\"}\n```"}
	client := &scriptedClient{reply: func(call int, _ credentials.Credential, _ context.Context) (llm.Response, error) {
		return llm.Response{Text: replies[call-1]}, nil
	}}
	sleeper := &recordingSleeper{}
	e := NewEngine(client, twoKeys(), Config{BaseWait: time.Second}, nil, WithSleeper(sleeper))

	res, ok := e.Extract(context.Background(), nil, []string{"Vendor Name"})
	if !ok {
		t.Fatal("expected success on third attempt")
	}
	if len(res.Invoices) != 1 {
		t.Fatalf("invoices = %d, want 1", len(res.Invoices))
	}
	inv := res.Invoices[0]
	if inv.Vendor != "Acme Traders" {
		t.Errorf("Vendor = %q", inv.Vendor)
	}
	if inv.Header.Has("vendor_name") || inv.Header.Value("Vendor Name").String() != "Acme Traders" {
		t.Errorf("header = %v", inv.Header.Keys())
	}
	if want := seconds(1, 2); !reflect.DeepEqual(sleeper.delays, want) {
		t.Errorf("delays = %v, want %v", sleeper.delays, want)
	}
}

func TestExtractMissingVendorGetsSentinel(t *testing.T) {
	client := &scriptedClient{reply: func(int, credentials.Credential, context.Context) (llm.Response, error) {
		return llm.Response{Text: `[{"Invoice No":"A-1"},{"Vendor Name":"","Invoice No":"A-2"}]`}, nil
	}}
	e := NewEngine(client, twoKeys(), Config{}, nil, WithSleeper(&recordingSleeper{}))

	res, ok := e.Extract(context.Background(), nil, nil)
	if !ok {
		t.Fatal("expected success")
	}
	for _, inv := range res.Invoices {
		if inv.Vendor != "Unknown Vendor" {
			t.Errorf("Vendor = %q, want sentinel", inv.Vendor)
		}
	}
}

func TestExtractStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &scriptedClient{reply: func(int, credentials.Credential, context.Context) (llm.Response, error) {
		cancel()
		return llm.Response{}, errors.New("boom")
	}}
	e := NewEngine(client, twoKeys(), Config{}, nil, WithSleeper(&recordingSleeper{}))

	if _, ok := e.Extract(ctx, nil, nil); ok {
		t.Fatal("expected failure")
	}
	if got := client.callCount(); got != 1 {
		t.Errorf("attempts after cancel = %d, want 1", got)
	}
}

func TestExtractWithoutCredentials(t *testing.T) {
	client := &scriptedClient{reply: func(int, credentials.Credential, context.Context) (llm.Response, error) {
		t.Fatal("client must not be called")
		return llm.Response{}, nil
	}}
	e := NewEngine(client, credentials.New(), Config{}, nil)
	if _, ok := e.Extract(context.Background(), nil, nil); ok {
		t.Fatal("expected failure with an empty pool")
	}
}

func TestBackoff(t *testing.T) {
	for attempt, want := range map[int]time.Duration{1: 2 * time.Second, 2: 4 * time.Second, 5: 32 * time.Second, 0: 2 * time.Second} {
		if got := Backoff(2*time.Second, attempt); got != want {
			t.Errorf("Backoff(attempt=%d) = %s, want %s", attempt, got, want)
		}
	}
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	invs, err := invoice.Decode([]byte(`[
		{"Vendor Name":"Acme","Invoice No":"INV-1","Line Items":[{"Qty":1}]},
		{"Vendor Name":"Acme","Invoice No":" INV-1 ","Line Items":[{"Qty":2}]},
		{"Vendor Name":"Acme","Invoice No":""},
		{"Vendor Name":"Acme"},
		{"Vendor Name":"Acme","Invoice No":"INV-2"}
	]`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	out := Dedupe(invs)
	if len(out) != 4 {
		t.Fatalf("kept %d invoices, want 4", len(out))
	}
	if q := out[0].Items[0].Quantity().String(); q != "1" {
		t.Errorf("first INV-1 should win, got Qty %s", q)
	}
	if out[3].Number != "INV-2" {
		t.Errorf("last kept = %q", out[3].Number)
	}
}
