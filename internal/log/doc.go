// Package log provides slog loggers that redact secrets before they reach
// the output.
//
// Research runs carry a Gemini API key through the process, and request
// headers may carry credentials for proxies. The SecureHandler masks values
// whose attribute key looks sensitive (api_key, authorization, token, ...)
// and values that look like credentials (Google API keys, bearer tokens)
// regardless of key.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Debug("client created", "api_key", key) // api_key=***REDACTED***
package log
