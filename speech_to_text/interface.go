package speech_to_text

// Interface scores one window of normalised samples, returning one score per
// label in label order.
type Interface interface {
	Infer(samples []float32) ([]float32, error)
}

type transcriber interface {
	Transcribe(samples []float32) (string, error)
}
