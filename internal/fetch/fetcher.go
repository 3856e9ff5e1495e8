package fetch

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"localdocs/internal/security"
)

const (
	// DownloadTimeout bounds the real fetch, streaming included.
	DownloadTimeout = 60 * time.Second

	chunkSize = 8 << 10 // 8 KiB
)

// Legacy decoders tried in order after UTF-8. latin-1 and iso-8859-1 share
// a charmap; both stay in the chain to keep the fallback order explicit.
var fallbackEncodings = []struct {
	name    string
	decoder *encoding.Decoder
}{
	{"latin-1", charmap.ISO8859_1.NewDecoder()},
	{"cp1252", charmap.Windows1252.NewDecoder()},
	{"iso-8859-1", charmap.ISO8859_1.NewDecoder()},
}

// Result is the decoded outcome of one download. Ephemeral; persistence is
// the document store's job.
type Result struct {
	Text      string
	Encoding  string
	MediaType string
}

// IsHTML reports whether the response identified itself as an HTML page.
func (r Result) IsHTML() bool {
	return r.MediaType == "text/html"
}

// Fetcher downloads documents that already passed URL validation in the
// same logical operation. Safe for concurrent use.
type Fetcher struct {
	client  *http.Client
	maxSize int64
}

// NewFetcher builds a fetcher on the guarded transport with the standard
// download timeout and size limit.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client:  security.NewClient(DownloadTimeout),
		maxSize: security.MaxContentSize,
	}
}

// Download performs the real GET and returns the decoded text. The body is
// streamed in fixed-size chunks against the size limit, so a missing or
// understated Content-Length cannot smuggle an oversized document through.
// Partial data is discarded on abort; nothing is written to disk here.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, &RequestError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", security.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, &RequestError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Result{}, &StatusError{Status: resp.StatusCode}
	}

	if rawLen := resp.Header.Get("Content-Length"); rawLen != "" {
		if declared, err := strconv.ParseInt(rawLen, 10, 64); err == nil && declared > f.maxSize {
			return Result{}, &TooLargeError{Size: declared, Limit: f.maxSize}
		}
	}

	data, err := f.readBounded(rawURL, resp.Body)
	if err != nil {
		return Result{}, err
	}

	text, encodingName, err := decodeContent(data)
	if err != nil {
		return Result{}, err
	}
	if encodingName != "utf-8" {
		log.Debug("decoded with fallback encoding", "url", rawURL, "encoding", encodingName)
	}

	return Result{
		Text:      text,
		Encoding:  encodingName,
		MediaType: mediaType(resp.Header.Get("Content-Type")),
	}, nil
}

func (f *Fetcher) readBounded(rawURL string, body io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, chunkSize)
	var total int64

	for {
		n, err := body.Read(chunk)
		if n > 0 {
			total += int64(n)
			if total > f.maxSize {
				return nil, &TooLargeError{Size: total, Limit: f.maxSize}
			}
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, &RequestError{URL: rawURL, Err: err}
		}
	}
}

func decodeContent(data []byte) (string, string, error) {
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}
	for _, enc := range fallbackEncodings {
		decoded, err := enc.decoder.Bytes(data)
		if err != nil {
			continue
		}
		return string(decoded), enc.name, nil
	}
	return "", "", &DecodeError{}
}

func mediaType(header string) string {
	if header == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(header, ";", 2)[0]))
	}
	return parsed
}
