package kafka_config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Brokers) != 1 || cfg.Brokers[0] != DefaultKafkaBrokers {
		t.Errorf("brokers = %v", cfg.Brokers)
	}
	if cfg.ProducerCompression != DefaultProducerCompression {
		t.Errorf("compression = %s", cfg.ProducerCompression)
	}
}

func TestLoad_TrimsBrokers(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, " kafka-1:9092 , kafka-2:9092 ,")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"kafka-1:9092", "kafka-2:9092"}
	if len(cfg.Brokers) != len(want) {
		t.Fatalf("brokers = %v, want %v", cfg.Brokers, want)
	}
	for i := range want {
		if cfg.Brokers[i] != want[i] {
			t.Errorf("broker %d = %q, want %q", i, cfg.Brokers[i], want[i])
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "no brokers", mutate: func(c *Config) { c.Brokers = nil }, wantErr: true},
		{name: "bad compression", mutate: func(c *Config) { c.ProducerCompression = "brotli" }, wantErr: true},
		{name: "bad acks", mutate: func(c *Config) { c.ProducerRequireAcks = 2 }, wantErr: true},
		{name: "zero attempts", mutate: func(c *Config) { c.ProducerMaxAttempts = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Brokers:              []string{"localhost:9092"},
				ProducerMaxAttempts:  DefaultProducerMaxAttempts,
				ProducerBatchTimeout: DefaultProducerBatchTimeout,
				ProducerWriteTimeout: DefaultProducerWriteTimeout,
				ProducerRequireAcks:  DefaultProducerRequireAcks,
				ProducerCompression:  DefaultProducerCompression,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
