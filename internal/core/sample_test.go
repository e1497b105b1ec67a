package core

import (
	"testing"
	"time"
)

func TestSampleSet_AddIgnoresOtherKinds(t *testing.T) {
	s := NewSampleSet(KindDeliveryRate)

	n := s.Add(
		Sample{Kind: KindDeliveryRate, Value: 10, Trial: 1},
		Sample{Kind: KindTransferDuration, Value: 18, Trial: 1},
		Sample{Kind: KindDeliveryRate, Value: 20, Trial: 2},
	)

	if n != 2 {
		t.Errorf("expected 2 samples appended, got %d", n)
	}
	if s.Len() != 2 {
		t.Errorf("expected len 2, got %d", s.Len())
	}
}

func TestSampleSet_FreezeStopsAppends(t *testing.T) {
	s := NewSampleSet(KindTransferDuration)
	s.Add(Sample{Kind: KindTransferDuration, Value: 1})

	frozen := s.Freeze()
	s.Add(Sample{Kind: KindTransferDuration, Value: 2})

	if len(frozen) != 1 {
		t.Fatalf("expected 1 frozen sample, got %d", len(frozen))
	}
	if s.Len() != 1 {
		t.Errorf("expected set to stay at 1 sample after freeze, got %d", s.Len())
	}

	frozen[0].Value = 99
	if again := s.Freeze(); again[0].Value != 1 {
		t.Error("Freeze must return a copy")
	}
}

func TestRunPlan_Validate(t *testing.T) {
	valid := RunPlan{
		ID:           "run",
		PayloadBytes: 1000000,
		Trials:       5,
		Endpoint: EndpointConfig{
			ClientBinary: "client",
			ServerBinary: "server",
			ServerPort:   9999,
		},
	}

	tests := []struct {
		name    string
		mutate  func(p *RunPlan)
		wantErr bool
	}{
		{"valid", func(p *RunPlan) {}, false},
		{"zero trials", func(p *RunPlan) { p.Trials = 0 }, true},
		{"negative warmup", func(p *RunPlan) { p.Warmup = -1 }, true},
		{"missing id", func(p *RunPlan) { p.ID = "" }, true},
		{"zero payload", func(p *RunPlan) { p.PayloadBytes = 0 }, true},
		{"missing client", func(p *RunPlan) { p.Endpoint.ClientBinary = "" }, true},
		{"bad port", func(p *RunPlan) { p.Endpoint.ServerPort = 70000 }, true},
		{"negative trial timeout", func(p *RunPlan) { p.TrialTimeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEndpointConfig_Addresses(t *testing.T) {
	e := EndpointConfig{ServerAddress: "10.55.10.1", ServerBind: "0.0.0.0", ServerPort: 9999}

	if got := e.ConnectAddress(); got != "10.55.10.1:9999" {
		t.Errorf("ConnectAddress() = %q", got)
	}
	if got := e.BindAddress(); got != "0.0.0.0:9999" {
		t.Errorf("BindAddress() = %q", got)
	}
}

func TestRunPlan_ExpectedTransfer(t *testing.T) {
	p := RunPlan{PayloadBytes: 10_000_000, Network: NetworkProfile{RateMbit: 20}}
	if got := p.ExpectedTransfer(); got != 4*time.Second {
		t.Errorf("ExpectedTransfer() = %v, want 4s", got)
	}

	p.Network.RateMbit = 0
	if got := p.ExpectedTransfer(); got != 0 {
		t.Errorf("ExpectedTransfer() without rate = %v, want 0", got)
	}
}
