package notifier

func NewSESSenderWithClient(client sesAPI, sender string) *SESSender {
	return &SESSender{client: client, sender: sender}
}

func NewKafkaPublisherWithWriter(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}
