package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/signed_send/internal/client"
	"github.com/congo-pay/signed_send/internal/config"
	"github.com/congo-pay/signed_send/internal/ledgerclient"
	"github.com/congo-pay/signed_send/internal/logging"
	"github.com/congo-pay/signed_send/internal/transfer"
	"github.com/congo-pay/signed_send/internal/wallet"
)

const recipient = "0x00000000000000000000000000000000000000Ab"

func testConfig() config.Config {
	return config.Config{
		AppName:        "signed_send_test",
		AppEnv:         "test",
		WelcomeCredit:  100,
		SendRateLimit:  100,
		IdempotencyTTL: time.Minute,
	}
}

func startServer(t *testing.T, cache *redis.Client) string {
	t.Helper()
	srv, err := New(testConfig(), nil, cache, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		_ = srv.Serve(ln)
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return "http://" + ln.Addr().String()
}

func TestSignedTransferEndToEnd(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	base := startServer(t, cache)
	provider, err := wallet.GenerateKeyProvider()
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	ledger := ledgerclient.New(base, 2*time.Second)
	app := client.New(client.Deps{Provider: provider, Ledger: ledger, Logger: logging.Discard()})
	ctx := context.Background()

	if err := app.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	app.Wait()
	if app.Balance() != 100 {
		t.Fatalf("expected welcome credit 100, got %d", app.Balance())
	}

	balance, err := app.Submit(ctx, "30", recipient)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if balance != 70 || app.Balance() != 70 {
		t.Fatalf("expected 70 after transfer, got %d / %d", balance, app.Balance())
	}

	// The same transfer again is a new submission, not a replay.
	if balance, err = app.Submit(ctx, "30", recipient); err != nil || balance != 40 {
		t.Fatalf("expected second transfer to leave 40, got %d (%v)", balance, err)
	}

	recipientBalance, err := ledger.Balance(ctx, recipient)
	if err != nil {
		t.Fatalf("recipient balance: %v", err)
	}
	if recipientBalance != 160 {
		t.Fatalf("expected recipient balance 160, got %d", recipientBalance)
	}

	_, err = app.Submit(ctx, "500", recipient)
	if !errors.Is(err, transfer.ErrSubmissionRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if status := app.Transfers.Status(); status.Reason != "Not enough funds" {
		t.Fatalf("expected verbatim service message, got %q", status.Reason)
	}
	if app.Balance() != 40 {
		t.Fatalf("balance must be unchanged after rejection, got %d", app.Balance())
	}

	if _, err := app.Submit(ctx, "5", "0xAB"); err == nil || app.Transfers.Status().Reason != "Address is invalid." {
		t.Fatalf("expected invalid address rejection, got %v / %q", err, app.Transfers.Status().Reason)
	}
}

func TestBalanceEndpoint(t *testing.T) {
	srv, err := New(testConfig(), nil, nil, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/balance/not-an-address", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 400 || !strings.Contains(string(body), `"message":"Address is invalid."`) {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, body)
	}

	resp, err = srv.App().Test(httptest.NewRequest("GET", "/balance/"+recipient, nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 || string(body) != `{"balance":100}` {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, body)
	}

	resp, err = srv.App().Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "signed_send_balance_queries_total 1") {
		t.Fatalf("expected balance query counter, got:\n%s", body)
	}
}

func TestSendRejectsMalformedBody(t *testing.T) {
	srv, err := New(testConfig(), nil, nil, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	req := httptest.NewRequest("POST", "/send", strings.NewReader(`{"rawMessage":"{}","signature":"0x00"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 400 || !strings.Contains(string(body), "Invalid Signature") {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, body)
	}
}
