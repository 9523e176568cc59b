package valueobject

import (
	"fmt"
	"net/http"
)

// OutcomeKind описывает исход одной проверки здоровья backend
type OutcomeKind int

const (
	// OutcomeNotConfigured - endpoint не настроен, сетевой вызов не выполнялся
	OutcomeNotConfigured OutcomeKind = iota
	// OutcomeOK - получен 2xx ответ
	OutcomeOK
	// OutcomeHTTPError - получен не-2xx ответ
	OutcomeHTTPError
	// OutcomeNetworkFailure - сервис недоступен (DNS, connect, timeout)
	OutcomeNetworkFailure
)

// String возвращает строковое представление исхода
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeHTTPError:
		return "http_error"
	case OutcomeNetworkFailure:
		return "network_failure"
	default:
		return "not_configured"
	}
}

// ProbeOutcome представляет результат транспорта для одной проверки (Value Object)
type ProbeOutcome struct {
	Kind       OutcomeKind
	StatusCode int
	Err        error
}

// OutcomeSuccess создает исход успешной проверки
func OutcomeSuccess() ProbeOutcome {
	return ProbeOutcome{Kind: OutcomeOK, StatusCode: http.StatusOK}
}

// OutcomeHTTPStatus создает исход с HTTP ошибкой
func OutcomeHTTPStatus(statusCode int) ProbeOutcome {
	return ProbeOutcome{
		Kind:       OutcomeHTTPError,
		StatusCode: statusCode,
		Err:        fmt.Errorf("unexpected status %d", statusCode),
	}
}

// OutcomeUnreachable создает исход сетевой ошибки
func OutcomeUnreachable(err error) ProbeOutcome {
	return ProbeOutcome{Kind: OutcomeNetworkFailure, Err: err}
}

// OutcomeMissingEndpoint создает исход "endpoint не настроен"
func OutcomeMissingEndpoint() ProbeOutcome {
	return ProbeOutcome{Kind: OutcomeNotConfigured}
}

// IsUnauthorized проверяет, что backend потребовал аутентификацию
func (o ProbeOutcome) IsUnauthorized() bool {
	return o.Kind == OutcomeHTTPError && o.StatusCode == http.StatusUnauthorized
}

// FailureReason классифицирует причину неудачной загрузки данных
type FailureReason string

const (
	FailureNotConfigured FailureReason = "not_configured"
	FailureUnauthorized  FailureReason = "unauthorized"
	FailureTransport     FailureReason = "transport"
)

// String возвращает строковое представление причины
func (r FailureReason) String() string {
	return string(r)
}

// Reason возвращает причину неудачи для исхода проверки; для OutcomeOK - пустая строка
func (o ProbeOutcome) Reason() FailureReason {
	switch {
	case o.Kind == OutcomeOK:
		return ""
	case o.Kind == OutcomeNotConfigured:
		return FailureNotConfigured
	case o.IsUnauthorized():
		return FailureUnauthorized
	default:
		return FailureTransport
	}
}
