package main

import (
	"bytes"
	"encoding/base64"

	"github.com/valyala/fasthttp"
)

const (
	jsonContentType = "application/json"
	userAgentPrefix = "pulse/"
)

type requestSpec struct {
	method, target, host string
	httpVersion          uint

	auth         authMethod
	user, token  string
	extraHeaders *headersList

	body *string
}

// request is immutable once built and is shared by every session of a
// phase. Its wire form is rendered once.
type request struct {
	method string
	target string
	host   string
	body   []byte
	wire   []byte
}

func newRequest(spec requestSpec) *request {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)

	h := &req.Header
	h.SetNoDefaultContentType(true)
	h.SetMethod(spec.method)
	h.SetProtocol(protocolFor(spec.httpVersion))
	req.SetRequestURI(spec.target)
	h.SetHost(spec.host)
	h.Set(fasthttp.HeaderConnection, "keep-alive")
	h.SetUserAgent(userAgentPrefix + version)

	switch spec.auth {
	case authBasic:
		h.Set(fasthttp.HeaderAuthorization, basicAuthorization(spec.user))
	case authToken:
		h.Set(fasthttp.HeaderAuthorization, "Bearer "+spec.token)
	case authClientCertificate:
		h.SetContentType(jsonContentType)
	}

	if spec.body != nil {
		if !spec.extraHeaders.has(fasthttp.HeaderContentType) {
			h.SetContentType(jsonContentType)
		}
		req.SetBodyString(*spec.body)
	}
	spec.extraHeaders.applyTo(h)

	r := &request{
		method: spec.method,
		target: spec.target,
		host:   spec.host,
	}
	if spec.body != nil {
		r.body = []byte(*spec.body)
	}
	var buf bytes.Buffer
	// Writing into memory can't fail.
	_, _ = req.WriteTo(&buf)
	r.wire = buf.Bytes()
	return r
}

func (r *request) raw() []byte {
	return r.wire
}

func basicAuthorization(credentials string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials))
}

func protocolFor(httpVersion uint) string {
	if httpVersion == 10 {
		return "HTTP/1.0"
	}
	return "HTTP/1.1"
}
