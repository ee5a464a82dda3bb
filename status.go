package main

import "github.com/valyala/fasthttp"

// status is the classified outcome of a completed request.
type status int

const (
	statusSuccess status = iota
	statusBadRequest
	statusUnauthorized
	statusForbidden
	statusNotFound
	statusTimeout
	statusTooManyRequests
	statusFoundTempRedirect
	statusClientError
	statusServerError
	statusUnknownError

	numStatuses
)

var statusNames = [numStatuses]string{
	statusSuccess:           "Success",
	statusBadRequest:        "BadRequest",
	statusUnauthorized:      "Unauthorized",
	statusForbidden:         "Forbidden",
	statusNotFound:          "NotFound",
	statusTimeout:           "Timeout",
	statusTooManyRequests:   "TooManyRequests",
	statusFoundTempRedirect: "FoundTempRedirect",
	statusClientError:       "ClientError",
	statusServerError:       "ServerError",
	statusUnknownError:      "UnknownError",
}

func (s status) String() string {
	if s < 0 || s >= numStatuses {
		return "UnknownError"
	}
	return statusNames[s]
}

func classifyStatus(code int) status {
	switch code {
	case fasthttp.StatusOK, fasthttp.StatusCreated:
		return statusSuccess
	case fasthttp.StatusBadRequest:
		return statusBadRequest
	case fasthttp.StatusUnauthorized:
		return statusUnauthorized
	case fasthttp.StatusForbidden:
		return statusForbidden
	case fasthttp.StatusNotFound:
		return statusNotFound
	case fasthttp.StatusRequestTimeout:
		return statusTimeout
	case fasthttp.StatusTooManyRequests:
		return statusTooManyRequests
	case fasthttp.StatusFound:
		return statusFoundTempRedirect
	}
	switch code / 100 {
	case 4:
		return statusClientError
	case 5:
		return statusServerError
	}
	return statusUnknownError
}

// statusFamily groups classes into the buckets shown in reports.
type statusFamily int

const (
	familySuccess statusFamily = iota
	familyClientError
	familyServerError
	familyOther
)

func (s status) family() statusFamily {
	switch s {
	case statusSuccess:
		return familySuccess
	case statusBadRequest, statusUnauthorized, statusForbidden,
		statusNotFound, statusTimeout, statusTooManyRequests,
		statusClientError:
		return familyClientError
	case statusServerError:
		return familyServerError
	default:
		return familyOther
	}
}
