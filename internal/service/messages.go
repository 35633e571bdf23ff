package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/langchou/evroute/internal/api/webhook"
	"github.com/langchou/evroute/internal/apperr"
	"github.com/langchou/evroute/internal/normalize"
)

// gatewayMessages 不同 webhook 的错误提示
type gatewayMessages struct {
	badRequest  string
	notFound    string
	serverError string
	generic     string // 其他错误的前缀
	noData      string // 响应无法识别
	empty       string // 响应为空，未设置时同 noData
}

var (
	planMessages = gatewayMessages{
		badRequest:  "Bad request (400): Check the route parameters.",
		notFound:    "Route planning service not found (404): Check the webhook URL.",
		serverError: "Server error (500): The route planning service may have an issue.",
		generic:     "Failed to plan route: ",
		noData:      "No route data found in response",
		empty:       "Route planning service returned empty response. Using fallback route.",
	}
	stationMessages = gatewayMessages{
		badRequest:  "Bad request (400): Check the request parameters.",
		notFound:    "Webhook not found (404): Check if the webhook URL is correct.",
		serverError: "Server error (500): The station search workflow may have an issue. Check the webhook configuration.",
		generic:     "Failed to search for stations: ",
		noData:      "Invalid response format from API",
	}
)

const networkErrorMessage = "Network error: Check your internet connection."

// classifyGatewayError 将 webhook 调用或归一化错误映射为带提示文案的领域错误
func classifyGatewayError(op string, m gatewayMessages, err error) *apperr.Error {
	if e, ok := apperr.As(err); ok {
		return e
	}

	var se *webhook.StatusError
	switch {
	case errors.As(err, &se):
		e := apperr.Wrap(apperr.KindUpstream, statusMessage(m, se), err).WithOp(op)
		e.Status = se.StatusCode
		return e
	case errors.Is(err, webhook.ErrBodyTooLarge):
		return apperr.Wrap(apperr.KindUpstream, m.generic+"Response too large", err).WithOp(op)
	case errors.Is(err, webhook.ErrTransport):
		return apperr.Wrap(apperr.KindNetwork, networkErrorMessage, err).WithOp(op)
	case errors.Is(err, normalize.ErrEmptyResponse):
		msg := m.generic + m.noData
		if m.empty != "" {
			msg = m.empty
		}
		return apperr.Wrap(apperr.KindEmpty, msg, err).WithOp(op)
	case errors.Is(err, normalize.ErrUnrecognizedShape):
		return apperr.Wrap(apperr.KindUnrecognized, m.generic+m.noData, err).WithOp(op)
	default:
		return apperr.Wrap(apperr.KindInternal, m.generic+err.Error(), err).WithOp(op)
	}
}

func statusMessage(m gatewayMessages, se *webhook.StatusError) string {
	switch se.StatusCode {
	case http.StatusBadRequest:
		return m.badRequest
	case http.StatusNotFound:
		return m.notFound
	case http.StatusInternalServerError:
		return m.serverError
	default:
		return fmt.Sprintf("%sRequest failed with status code %d", m.generic, se.StatusCode)
	}
}
