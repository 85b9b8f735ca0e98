package prompts

// Input carries every field any prompt might need. Missing fields render empty strings.
type Input struct {
	// Practice problem
	VideoID    string
	Transcript string
}
