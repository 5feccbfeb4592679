package ledgerclient

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func startLedger(t *testing.T, setup func(app *fiber.App)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	setup(app)
	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = app.Shutdown()
	})
	return "http://" + ln.Addr().String()
}

func TestClientBalance(t *testing.T) {
	base := startLedger(t, func(app *fiber.App) {
		app.Get("/balance/:address", func(c *fiber.Ctx) error {
			if c.Params("address") != "0xA1" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Address is invalid."})
			}
			return c.JSON(fiber.Map{"balance": 100})
		})
	})
	client := New(base, time.Second)

	balance, err := client.Balance(context.Background(), "0xA1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 100 {
		t.Fatalf("expected 100, got %d", balance)
	}

	_, err = client.Balance(context.Background(), "zz")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected service error, got %v", err)
	}
	if svcErr.Message != "Address is invalid." || svcErr.Status != fiber.StatusBadRequest {
		t.Fatalf("unexpected service error %+v", svcErr)
	}
}

func TestClientSend(t *testing.T) {
	envelope := SignedEnvelope{RawMessage: `{"amount":5,"recipient":"0xAB"}`, Signature: "0xsig"}
	var gotKey string
	var got SignedEnvelope
	base := startLedger(t, func(app *fiber.App) {
		app.Post("/send", func(c *fiber.Ctx) error {
			gotKey = c.Get(idempotencyKeyHeader)
			if err := c.BodyParser(&got); err != nil {
				return err
			}
			if got.Signature != "0xsig" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid Signature"})
			}
			return c.JSON(fiber.Map{"balance": 42})
		})
	})
	client := New(base, time.Second)

	balance, err := client.Send(context.Background(), envelope)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if balance != 42 {
		t.Fatalf("expected 42, got %d", balance)
	}
	if got != envelope {
		t.Fatalf("server received %+v, expected %+v", got, envelope)
	}
	firstKey := gotKey
	if _, err := uuid.Parse(firstKey); err != nil {
		t.Fatalf("expected uuid idempotency key, got %q", firstKey)
	}
	if _, err := client.Send(context.Background(), envelope); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if gotKey == firstKey {
		t.Fatal("expected a fresh idempotency key per submission")
	}

	_, err = client.Send(context.Background(), SignedEnvelope{RawMessage: "{}", Signature: "bad"})
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.Message != "Invalid Signature" {
		t.Fatalf("expected Invalid Signature rejection, got %v", err)
	}
}

func TestClientPlainTextError(t *testing.T) {
	base := startLedger(t, func(app *fiber.App) {
		app.Get("/balance/:address", func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusServiceUnavailable).SendString("maintenance")
		})
	})
	_, err := New(base, time.Second).Balance(context.Background(), "0xA1")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.Message != "maintenance" {
		t.Fatalf("expected plain text message, got %v", err)
	}
}

func TestClientCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New("http://127.0.0.1:1", time.Second).Balance(ctx, "0xA1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}
