package responder

import (
	"bytes"
	"net/http"
	"strconv"

	"firestige.xyz/rawhttpd/internal/config"
)

// HTTPResponse renders the fixed HTTP/1.1 response sent on every connection.
// Content-Length always equals the body length.
func HTTPResponse(cfg config.ResponseConfig) []byte {
	text := http.StatusText(cfg.Status)
	if text == "" {
		text = "Status " + strconv.Itoa(cfg.Status)
	}

	var b bytes.Buffer
	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(cfg.Status))
	b.WriteByte(' ')
	b.WriteString(text)
	b.WriteString("\r\n")
	if cfg.Server != "" {
		writeHeader(&b, "Server", cfg.Server)
	}
	if cfg.ContentType != "" {
		writeHeader(&b, "Content-Type", cfg.ContentType)
	}
	writeHeader(&b, "Connection", "close")
	writeHeader(&b, "Content-Length", strconv.Itoa(len(cfg.Body)))
	b.WriteString("\r\n")
	b.WriteString(cfg.Body)
	return b.Bytes()
}

func writeHeader(b *bytes.Buffer, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}
