package main

import (
	"bytes"
	"encoding/base64"
	"strings"

	"github.com/alecthomas/kingpin"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

var serverPort = kingpin.Flag("port", "port to use for benchmarks").
	Default("8443").
	Short('p').
	String()
var responseSize = kingpin.Flag("size", "size of response in bytes").
	Default("1024").
	Short('s').
	Uint()
var closeAfterResponse = kingpin.Flag("close",
	"answer every request with Connection: close").
	Bool()
var statusCode = kingpin.Flag("status", "status code of every response").
	Default("200").
	Int()
var basicUser = kingpin.Flag("user",
	"require Basic credentials <name>:<password>").
	String()
var bearerToken = kingpin.Flag("token", "require this Bearer token").
	String()
var certFile = kingpin.Flag("cert", "TLS certificate, generated if omitted").
	String()
var keyFile = kingpin.Flag("key", "TLS private key, generated if omitted").
	String()

func expectedAuthorization() []byte {
	switch {
	case *basicUser != "":
		return []byte("Basic " +
			base64.StdEncoding.EncodeToString([]byte(*basicUser)))
	case *bearerToken != "":
		return []byte("Bearer " + *bearerToken)
	}
	return nil
}

func main() {
	kingpin.Parse()
	response := strings.Repeat("a", int(*responseSize))
	auth := expectedAuthorization()
	handler := func(c *fasthttp.RequestCtx) {
		if *closeAfterResponse {
			c.SetConnectionClose()
		}
		if auth != nil &&
			!bytes.Equal(c.Request.Header.Peek(fasthttp.HeaderAuthorization), auth) {
			c.SetStatusCode(fasthttp.StatusUnauthorized)
			return
		}
		c.SetStatusCode(*statusCode)
		_, werr := c.WriteString(response)
		if werr != nil {
			log.WithError(werr).Warn("write failed")
		}
	}

	addr := "localhost:" + *serverPort
	s := &fasthttp.Server{Handler: handler, Name: "simplebenchserver"}
	log.WithField("addr", addr).Info("starting HTTPS server")
	var err error
	if *certFile != "" && *keyFile != "" {
		err = s.ListenAndServeTLS(addr, *certFile, *keyFile)
	} else {
		var certPEM, keyPEM []byte
		certPEM, keyPEM, err = fasthttp.GenerateTestCertificate("localhost")
		if err == nil {
			err = s.ListenAndServeTLSEmbed(addr, certPEM, keyPEM)
		}
	}
	if err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
