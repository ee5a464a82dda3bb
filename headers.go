package main

import (
	"fmt"
	"strings"

	"github.com/valyala/fasthttp"
)

type header struct {
	key, value string
}

type headersList []header

func (h *headersList) String() string {
	return fmt.Sprint(*h)
}

func (h *headersList) IsCumulative() bool {
	return true
}

func (h *headersList) Set(value string) error {
	res := strings.SplitN(value, ":", 2)
	if len(res) != 2 {
		return errInvalidHeaderFormat
	}
	*h = append(*h, header{
		res[0], strings.Trim(res[1], " "),
	})
	return nil
}

// has reports whether a header with the given key was supplied,
// ignoring case.
func (h *headersList) has(key string) bool {
	if h == nil {
		return false
	}
	for _, hdr := range *h {
		if strings.EqualFold(hdr.key, key) {
			return true
		}
	}
	return false
}

// applyTo copies the list onto a request header, overriding any value
// already set for the same key.
func (h *headersList) applyTo(rh *fasthttp.RequestHeader) {
	if h == nil {
		return
	}
	for _, hdr := range *h {
		rh.Set(hdr.key, hdr.value)
	}
}
