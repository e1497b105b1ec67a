package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quicperf/internal/core"
)

const clientLogMs = "[2025-12-15T04:12:15.895071000Z INFO  quiche_apps::client] connecting to 127.0.0.1:9999 from 0.0.0.0:52522 with scid eff94d1df3d374a001a807c4c5b7b44fca82e6aa\n" +
	"[2025-12-15T04:12:15.914151000Z INFO  quiche_apps::common] 1/1 response(s) received in 18.767083ms, closing...\n" +
	"[2025-12-15T04:12:15.914211000Z INFO  quiche_apps::client] connection closed, recv=794 sent=291 lost=0 retrans=0 sent_bytes=15318 recv_bytes=1038727 lost_bytes=0 [local_addr=0.0.0.0:52522 peer_addr=127.0.0.1:9999 validation_state=Validated active=true recv=794 sent=291 lost=0 retrans=0 rtt=923.083µs min_rtt=Some(144.738µs) rttvar=937.037µs cwnd=13500 sent_bytes=15318 recv_bytes=1038727 lost_bytes=0 stream_retrans_bytes=0 pmtu=1350 delivery_rate=1997003]\n"

func TestTransferDuration(t *testing.T) {
	tests := []struct {
		name string
		log  string
		want float64
	}{
		{"milliseconds", clientLogMs, 18},
		{"seconds", strings.Replace(clientLogMs, "18.767083ms", "1.335630013s", 1), 1335},
		{"integer seconds", "1/1 response(s) received in 2s, closing...", 2000},
		{"fractional seconds near boundary", "received in 0.29s", 290},
		{"integer milliseconds", "received in 7ms", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples, err := TransferDuration{}.Extract(tt.log)
			require.NoError(t, err)
			require.Len(t, samples, 1)
			assert.Equal(t, core.KindTransferDuration, samples[0].Kind)
			assert.Equal(t, tt.want, samples[0].Value)
		})
	}
}

func TestTransferDuration_FirstMatchWins(t *testing.T) {
	log := "received in 5ms\nreceived in 900ms\n"

	samples, err := TransferDuration{}.Extract(log)
	require.NoError(t, err)
	assert.Equal(t, float64(5), samples[0].Value)
}

func TestTransferDuration_IgnoresPartialPhrase(t *testing.T) {
	log := "retrying: response(s) received in \nreceived in 42.5ms, closing..."

	samples, err := TransferDuration{}.Extract(log)
	require.NoError(t, err)
	assert.Equal(t, float64(42), samples[0].Value)
}

func TestTransferDuration_Missing(t *testing.T) {
	_, err := TransferDuration{}.Extract("connection timed out")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoMatch))

	var extractErr *ExtractionError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, core.KindTransferDuration, extractErr.Kind)
}

func TestTransferDuration_Negative(t *testing.T) {
	_, err := TransferDuration{}.Extract("received in -3ms")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestDeliveryRate(t *testing.T) {
	samples, err := DeliveryRate{}.Extract(clientLogMs)

	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, core.KindDeliveryRate, samples[0].Kind)
	assert.Equal(t, float64(1997003), samples[0].Value)
}

func TestDeliveryRate_FirstMatchWins(t *testing.T) {
	samples, err := DeliveryRate{}.Extract("delivery_rate=10 delivery_rate=20")

	require.NoError(t, err)
	assert.Equal(t, float64(10), samples[0].Value)
}

func TestDeliveryRate_Missing(t *testing.T) {
	_, err := DeliveryRate{}.Extract("delivery_rate= pmtu=1350")

	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, core.KindDeliveryRate, extractErr.Kind)
}

func TestTrial(t *testing.T) {
	samples, err := Trial(clientLogMs, 3)

	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, core.Sample{Kind: core.KindTransferDuration, Value: 18, Trial: 3}, samples[0])
	assert.Equal(t, core.Sample{Kind: core.KindDeliveryRate, Value: 1997003, Trial: 3}, samples[1])
}

func TestTrial_PartialFailure(t *testing.T) {
	samples, err := Trial("1/1 response(s) received in 12ms, closing...", 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMatch)
	require.Len(t, samples, 1)
	assert.Equal(t, core.KindTransferDuration, samples[0].Kind)
}

func TestClientRecognizers_Kinds(t *testing.T) {
	kinds := make([]core.Kind, 0, len(ClientRecognizers))
	for _, r := range ClientRecognizers {
		kinds = append(kinds, r.Kind())
	}
	assert.Equal(t, []core.Kind{core.KindTransferDuration, core.KindDeliveryRate}, kinds)
	assert.Equal(t, core.KindStartupExitBandwidth, StartupExit{}.Kind())
}
