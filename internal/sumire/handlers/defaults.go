package handlers

// All returns the full handler set in routing order. Readback goes first
// because questions about a setting often contain the same keywords as a
// change request; the most specific change handlers follow.
func All(svc *Service) []Handler {
	return []Handler{
		NewReadbackHandler(svc),
		NewUnitsHandler(svc),
		NewTimeFormatHandler(svc),
		NewDateFormatHandler(svc),
		NewWakePhraseHandler(svc),
		NewTimezoneHandler(svc),
		NewLocationHandler(svc),
		NewEmailHandler(svc),
		NewNameHandler(svc),
		NewSpeechRateHandler(svc),
		NewVerbosityHandler(svc),
		NewHesitationHandler(svc),
		NewTranscriptionHandler(svc),
		NewRetentionHandler(svc),
	}
}
