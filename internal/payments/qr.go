package payments

import (
	"fmt"
	"math"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/horizon-travel/tourbook/config"
)

// MinTransferVND is the floor applied to amounts the wallet would reject.
const MinTransferVND = 50000

// Builder assembles e-wallet transfer payloads and renders them as QR codes.
type Builder struct {
	cfg config.PaymentConfig
}

// NewBuilder creates a payment payload builder.
func NewBuilder(cfg config.PaymentConfig) *Builder {
	return &Builder{cfg: cfg}
}

// AmountVND converts a USD total to VND at the configured rate, rounding
// to the nearest dong. Amounts under 1000 VND are bumped to MinTransferVND
// so the wallet accepts the transfer.
func (b *Builder) AmountVND(usd float64) int64 {
	vnd := int64(math.Round(usd * b.cfg.USDToVNDRate))
	if vnd < 1000 {
		return MinTransferVND
	}
	return vnd
}

// TransferNote builds the payment note attached to a booking transfer.
func TransferNote(tourName string, people int) string {
	return fmt.Sprintf("Tour: %s - %d people", tourName, people)
}

// BuildTransferPayload returns the pipe-delimited wallet transfer string
// encoded into booking QR codes:
//
//	2|1|phone|recipient|amountVND|bankCode|0|note|transfer
//
// The note is URL-encoded so pipes and spaces in tour names cannot break
// the field layout.
func (b *Builder) BuildTransferPayload(usdTotal float64, tourName string, people int) string {
	return fmt.Sprintf("2|1|%s|%s|%d|%s|0|%s|transfer",
		b.cfg.WalletPhone,
		b.cfg.RecipientName,
		b.AmountVND(usdTotal),
		b.cfg.BankCode,
		url.QueryEscape(TransferNote(tourName, people)),
	)
}

// RenderPNG renders a transfer payload as a QR PNG of the given size in pixels.
func RenderPNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
