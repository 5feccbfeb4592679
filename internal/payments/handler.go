package payments

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/signed_send/internal/ledger"
)

const (
	msgInvalidSignature = "Invalid Signature"
	msgInvalidAddress   = "Address is invalid."
	msgNotEnoughFunds   = "Not enough funds"
	msgInvalidAmount    = "Invalid amount"
	msgDuplicate        = "duplicate transaction"
)

// Handler exposes the ledger HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Balance returns the balance of the address in the path.
func (h *Handler) Balance(c *fiber.Ctx) error {
	balance, err := h.service.Balance(c.UserContext(), c.Params("address"))
	if err != nil {
		if errors.Is(err, ErrInvalidAddress) {
			return fiber.NewError(http.StatusBadRequest, msgInvalidAddress)
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"balance": balance})
}

// Send processes a signed transfer envelope.
func (h *Handler) Send(c *fiber.Ctx) error {
	var env Envelope
	if err := c.BodyParser(&env); err != nil {
		return fiber.NewError(http.StatusBadRequest, msgInvalidSignature)
	}

	res, err := h.service.Send(c.UserContext(), SendInput{
		Envelope:   env,
		ClientTxID: c.Get("Idempotency-Key"),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSignature):
			return fiber.NewError(http.StatusBadRequest, msgInvalidSignature)
		case errors.Is(err, ErrInvalidAddress):
			return fiber.NewError(http.StatusBadRequest, msgInvalidAddress)
		case errors.Is(err, ledger.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, msgInvalidAmount)
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, msgNotEnoughFunds)
		case errors.Is(err, ledger.ErrDuplicateTransaction):
			return fiber.NewError(http.StatusConflict, msgDuplicate)
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"balance":        res.Balance,
		"transaction_id": res.TransactionID,
		"completed_at":   res.CompletedAt,
	})
}
