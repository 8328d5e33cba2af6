// utils/safelog.go
// ============================================================================
// SAFE LOGGING - Masks sensitive data in production
// ============================================================================
// Amounts, descriptions, emails and document ids are personal financial data;
// in production mode they are masked before reaching the logs.
// ============================================================================

package utils

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
)

var (
	// IsProduction: sensitive values are masked when true.
	IsProduction = os.Getenv("GIN_MODE") == "release" ||
		os.Getenv("ENVIRONMENT") == "production" ||
		os.Getenv("ENV") == "production"

	LogLevel = getLogLevel()
)

const (
	LogLevelDebug = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func getLogLevel() int {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return LogLevelDebug
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

var (
	emailRegex  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	amountRegex = regexp.MustCompile(`\b\d+([.,]\d{1,2})?\s*(€|EUR|USD|MXN|ARS|\$)\b`)
	uuidRegex   = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// MaskString masks emails, currency amounts and full uuids in a string.
func MaskString(input string) string {
	if !IsProduction {
		return input
	}
	masked := emailRegex.ReplaceAllString(input, "***@***")
	masked = amountRegex.ReplaceAllString(masked, "***")
	masked = uuidRegex.ReplaceAllStringFunc(masked, func(id string) string {
		return id[:8] + "-****"
	})
	return masked
}

// MaskAmount hides the value of a currency amount in production.
func MaskAmount(amount float64) string {
	if !IsProduction {
		return fmt.Sprintf("%.2f", amount)
	}
	return "***.**"
}

// MaskID keeps the first 8 characters of an identifier.
func MaskID(id string) string {
	if !IsProduction || len(id) <= 8 {
		return id
	}
	return id[:8] + "-****"
}

// MaskEmail keeps the first character of the local part.
func MaskEmail(email string) string {
	if !IsProduction {
		return email
	}
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***@***"
}

func logAt(level int, prefix, format string, args ...interface{}) {
	if LogLevel > level {
		return
	}
	log.Print(prefix + MaskString(fmt.Sprintf(format, args...)))
}

func SafeDebug(format string, args ...interface{}) {
	logAt(LogLevelDebug, "[DEBUG] ", format, args...)
}

func SafeInfo(format string, args ...interface{}) {
	logAt(LogLevelInfo, "[INFO] ", format, args...)
}

func SafeWarn(format string, args ...interface{}) {
	logAt(LogLevelWarn, "[WARN] ", format, args...)
}

func SafeError(format string, args ...interface{}) {
	logAt(LogLevelError, "[ERROR] ", format, args...)
}

// SafeLog keeps the old unleveled entry point used by request logging.
func SafeLog(format string, args ...interface{}) {
	log.Print(MaskString(fmt.Sprintf(format, args...)))
}

// ============================================================================
// DOMAIN ACTION LOGS
// ============================================================================

func LogExpenseAction(action, expenseID, userID string) {
	SafeInfo("[Expense] %s expense=%s user=%s", action, MaskID(expenseID), MaskID(userID))
}

func LogArchiveAction(action, detail, userID string) {
	SafeInfo("[Archive] %s %s user=%s", action, detail, MaskID(userID))
}

func LogAuthAction(action, email string, success bool) {
	status := "OK"
	if !success {
		status = "FAILED"
	}
	SafeInfo("[Auth] %s %s - %s", action, MaskEmail(email), status)
}

func LogStartup(appName, version, port string) {
	mode := "development"
	if IsProduction {
		mode = "production"
	}
	log.Printf("🚀 %s v%s starting on port %s (%s mode)", appName, version, port, mode)
}
