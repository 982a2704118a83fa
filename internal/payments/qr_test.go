package payments

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/horizon-travel/tourbook/config"
)

func testBuilder() *Builder {
	return NewBuilder(config.PaymentConfig{
		WalletPhone:   "0901234567",
		RecipientName: "HORIZON TOURS",
		BankCode:      "108",
		USDToVNDRate:  24000,
	})
}

func TestAmountVNDConversion(t *testing.T) {
	b := testBuilder()

	assert.Equal(t, int64(2400000), b.AmountVND(100))
	assert.Equal(t, int64(1200), b.AmountVND(0.05))
	// Rounds to the nearest dong.
	assert.Equal(t, int64(36000), b.AmountVND(1.5))
}

func TestAmountVNDFloor(t *testing.T) {
	b := testBuilder()

	// Anything under 1000 VND is bumped so the wallet accepts it.
	assert.Equal(t, int64(MinTransferVND), b.AmountVND(0))
	assert.Equal(t, int64(MinTransferVND), b.AmountVND(0.04))
	// 1000 VND exactly is not bumped.
	b.cfg.USDToVNDRate = 20000
	assert.Equal(t, int64(1000), b.AmountVND(0.05))
}

func TestBuildTransferPayload(t *testing.T) {
	b := testBuilder()

	payload := b.BuildTransferPayload(150, "Ha Long Bay Cruise", 2)
	fields := strings.Split(payload, "|")
	if assert.Len(t, fields, 9) {
		assert.Equal(t, "2", fields[0])
		assert.Equal(t, "1", fields[1])
		assert.Equal(t, "0901234567", fields[2])
		assert.Equal(t, "HORIZON TOURS", fields[3])
		assert.Equal(t, "3600000", fields[4])
		assert.Equal(t, "108", fields[5])
		assert.Equal(t, "0", fields[6])
		assert.Equal(t, "Tour%3A+Ha+Long+Bay+Cruise+-+2+people", fields[7])
		assert.Equal(t, "transfer", fields[8])
	}
}

func TestTransferNoteEncodesPipes(t *testing.T) {
	b := testBuilder()

	// A pipe in the tour name must not add a field.
	payload := b.BuildTransferPayload(100, "Hue | Hoi An", 3)
	assert.Len(t, strings.Split(payload, "|"), 9)
}

func TestRenderPNG(t *testing.T) {
	png, err := RenderPNG("2|1|0901234567|HORIZON TOURS|2400000|108|0|note|transfer", 256)
	assert.NoError(t, err)
	assert.NotEmpty(t, png)
	// PNG magic bytes.
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])

	// Zero size falls back to the default.
	png, err = RenderPNG("x", 0)
	assert.NoError(t, err)
	assert.NotEmpty(t, png)
}
