package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPErrorInfo is the status and user-facing message for an error.
type HTTPErrorInfo struct {
	Status  int
	Message string
}

// ErrorMapping binds one sentinel error to a status and message.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string
}

// ErrorMapper turns errors into HTTP responses. Mappings are matched with
// errors.Is in the order they were added.
type ErrorMapper struct {
	mappings       []ErrorMapping
	defaultStatus  int
	defaultMessage string
}

func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{
		defaultStatus:  http.StatusInternalServerError,
		defaultMessage: "internal server error",
	}
}

func (m *ErrorMapper) WithMapping(err error, status int, message string) *ErrorMapper {
	m.mappings = append(m.mappings, ErrorMapping{Error: err, Status: status, Message: message})
	return m
}

func (m *ErrorMapper) WithMappings(mappings ...ErrorMapping) *ErrorMapper {
	m.mappings = append(m.mappings, mappings...)
	return m
}

// WithDefault sets the response for errors no mapping matches.
func (m *ErrorMapper) WithDefault(status int, message string) *ErrorMapper {
	m.defaultStatus = status
	m.defaultMessage = message
	return m
}

// Map resolves err. Registered mappings win over the context defaults, so a
// caller can give a timeout its own message.
func (m *ErrorMapper) Map(err error) HTTPErrorInfo {
	if err == nil {
		return HTTPErrorInfo{Status: http.StatusOK}
	}
	if info, ok := match(err, m.mappings); ok {
		return info
	}
	if info, ok := contextError(err); ok {
		return info
	}
	return HTTPErrorInfo{Status: m.defaultStatus, Message: m.defaultMessage}
}

// HTTPError is Map wrapped as an echo error, keeping err as the internal cause.
func (m *ErrorMapper) HTTPError(err error) *echo.HTTPError {
	if err == nil {
		return nil
	}
	info := m.Map(err)
	return echo.NewHTTPError(info.Status, info.Message).SetInternal(err)
}

// QuickMap maps err against mappings without building a mapper.
func QuickMap(err error, mappings ...ErrorMapping) HTTPErrorInfo {
	return NewErrorMapper().WithMappings(mappings...).Map(err)
}

func match(err error, mappings []ErrorMapping) (HTTPErrorInfo, bool) {
	for _, mapping := range mappings {
		if errors.Is(err, mapping.Error) {
			return HTTPErrorInfo{Status: mapping.Status, Message: mapping.Message}, true
		}
	}
	return HTTPErrorInfo{}, false
}

func contextError(err error) (HTTPErrorInfo, bool) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return HTTPErrorInfo{Status: http.StatusGatewayTimeout, Message: "request timeout"}, true
	case errors.Is(err, context.Canceled):
		return HTTPErrorInfo{Status: http.StatusServiceUnavailable, Message: "request cancelled"}, true
	}
	return HTTPErrorInfo{}, false
}
