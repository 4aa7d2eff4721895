package logger

// Component-specific logger functions

// Server returns a logger for HTTP server operations
func Server() Logger {
	return WithField("component", "server")
}

// Store returns a logger for database operations
func Store() Logger {
	return WithField("component", "store")
}

// Cache returns a logger for read-cache operations
func Cache() Logger {
	return WithField("component", "cache")
}

// Tasks returns a logger for task service operations
func Tasks() Logger {
	return WithField("component", "tasks")
}

// Auth returns a logger for authentication operations
func Auth() Logger {
	return WithField("component", "auth")
}

// LLM returns a logger for language-model calls
func LLM() Logger {
	return WithField("component", "llm")
}

// CLI returns a logger for CLI operations
func CLI() Logger {
	return WithField("component", "cli")
}
