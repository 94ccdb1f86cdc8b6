package kafka

import (
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	tlsutils "github.com/RedHatInsights/insights-operator-utils/tls"
	"github.com/content-services/content-uploads-backend/pkg/config"
	"github.com/rs/zerolog/log"
)

// Brokers splits the configured bootstrap servers
func Brokers(cfg config.Kafka) []string {
	brokers := []string{}
	for _, server := range strings.Split(cfg.BootstrapServers, ",") {
		if server = strings.TrimSpace(server); server != "" {
			brokers = append(brokers, server)
		}
	}
	return brokers
}

// NewSaramaConfig builds a producer configuration with the TLS and SASL
// settings of cfg applied.
func NewSaramaConfig(cfg config.Kafka) (*sarama.Config, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V2_0_0_0
	saramaConfig.Producer.Return.Successes = true

	if cfg.Capath != "" {
		tlsConfig, err := tlsutils.NewTLSConfig(cfg.Capath)
		if err != nil {
			return nil, fmt.Errorf("unable to load TLS config for %s cert: %w", cfg.Capath, err)
		}
		saramaConfig.Net.TLS.Enable = true
		saramaConfig.Net.TLS.Config = tlsConfig
	}

	if strings.HasPrefix(cfg.Sasl.Protocol, "SASL_") {
		log.Info().Msgf("Configuring SASL authentication: %s", cfg.Sasl.Protocol)
		saramaConfig.Net.SASL.Enable = true
		saramaConfig.Net.SASL.User = cfg.Sasl.Username
		saramaConfig.Net.SASL.Password = cfg.Sasl.Password
		saramaConfig.Net.SASL.Mechanism = sarama.SASLMechanism(strings.ToUpper(cfg.Sasl.Mechanism))

		switch saramaConfig.Net.SASL.Mechanism {
		case sarama.SASLTypeSCRAMSHA512:
			saramaConfig.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &SCRAMClient{HashGeneratorFcn: SHA512}
			}
		case sarama.SASLTypeSCRAMSHA256:
			saramaConfig.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
				return &SCRAMClient{HashGeneratorFcn: SHA256}
			}
		}
	}
	return saramaConfig, nil
}
