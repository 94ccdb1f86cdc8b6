package kafka

import (
	clowder "github.com/redhatinsights/app-common-go/pkg/api/v1"
	"github.com/rs/zerolog/log"
)

// TopicTranslation maps the topic names requested in the clowdapp resource
// to the names of the topics actually created in kafka.
type TopicTranslation struct {
	internalToReal map[string]string
	realToInternal map[string]string
}

func NewTopicTranslationWithClowder(cfg *clowder.AppConfig) *TopicTranslation {
	tm := &TopicTranslation{
		internalToReal: make(map[string]string),
		realToInternal: make(map[string]string),
	}
	if cfg != nil && cfg.Kafka != nil {
		for _, topic := range cfg.Kafka.Topics {
			tm.internalToReal[topic.RequestedName] = topic.Name
			tm.realToInternal[topic.Name] = topic.RequestedName
			log.Debug().Str(topic.RequestedName, topic.Name).Msg("internalToReal")
		}
	}
	return tm
}

// GetInternal returns the requested name of a real topic, or the input when unknown
func (tm *TopicTranslation) GetInternal(realTopic string) string {
	if val, ok := tm.realToInternal[realTopic]; ok {
		return val
	}
	return realTopic
}

// GetReal returns the kafka name of a requested topic, or the input when unknown
func (tm *TopicTranslation) GetReal(internalTopic string) string {
	if val, ok := tm.internalToReal[internalTopic]; ok {
		return val
	}
	return internalTopic
}
