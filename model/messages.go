package model

// Fixed user facing responses. Internal errors are never shown to the user; they map to one of these.
const (
	MsgMissingCredential  = "LLM API key is not configured. Please set GEMINI_API_KEY in your .env file or system environment variables."
	MsgTransportError     = "There was an issue connecting to the AI. Please check your internet connection and try again later."
	MsgUnclearResponse    = "I apologize, but I could not get a clear response from the AI. Please try rephrasing your question."
	MsgOffTopic           = "I apologize, but I am a medical assistant and can only provide information related to medical, health, and mental health topics. Please ask a health-related question."
	MsgDisclaimer         = "Disclaimer: This information is for educational purposes only and is not a substitute for professional medical advice. Please consult a healthcare professional for diagnosis and treatment."
	MsgServiceUnavailable = "The medical knowledge service failed to initialize. Please try again later."
	MsgInternalError      = "An internal error occurred. Please try again later or consult a healthcare professional."

	// HTTP layer
	MsgEmptyMessage     = "Please enter a message."
	MsgInvalidJSON      = "Invalid JSON in request body."
	MsgMethodNotAllowed = "Only POST requests are allowed."
	MsgServerError      = "An error occurred while processing your request."
)
