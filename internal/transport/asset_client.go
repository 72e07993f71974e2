package transport

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/config"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
	pkglog "github.com/weiawesome/wes-io-live/profile-image-service/pkg/log"
)

const assetsPath = "/assets/v3"

// assetMetadata is the JSON part of an upload.
type assetMetadata struct {
	Public    bool   `json:"public"`
	Retention string `json:"retention"`
}

type uploadResponse struct {
	Key     string `json:"key"`
	Expires string `json:"expires,omitempty"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

// AssetClient talks to a REST asset backend.
type AssetClient struct {
	client       *resty.Client
	baseURL      string
	maxAssetSize int64
}

var _ Transport = (*AssetClient)(nil)

func NewAssetClient(cfg config.TransportConfig) (*AssetClient, error) {
	if cfg.AssetURL == "" {
		return nil, errors.New("asset url is required")
	}
	if _, err := url.Parse(cfg.AssetURL); err != nil {
		return nil, fmt.Errorf("invalid asset url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(cfg.AssetURL, "/")
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	if cfg.AccessToken != "" {
		client.SetAuthToken(cfg.AccessToken)
	}

	return &AssetClient{client: client, baseURL: baseURL, maxAssetSize: cfg.MaxAssetSize}, nil
}

// Upload posts data as a public asset with eternal retention.
func (c *AssetClient) Upload(ctx context.Context, size domain.ImageSize, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrInvalidLength
	}
	if c.maxAssetSize > 0 && int64(len(data)) > c.maxAssetSize {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrAssetTooLarge, len(data), c.maxAssetSize)
	}

	body, contentType, err := encodeUpload(data)
	if err != nil {
		return "", err
	}

	var result uploadResponse
	var apiErr errorResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post(assetsPath)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", size, err)
	}
	if resp.IsError() {
		return "", classify(resp.StatusCode(), apiErr.Label, apiErr.Message)
	}
	if result.Key == "" {
		return "", ErrMissingAssetKey
	}

	l := pkglog.Ctx(ctx)
	l.Info().
		Str(pkglog.FieldImageSize, size.String()).
		Str(pkglog.FieldAssetID, result.Key).
		Int(pkglog.FieldStatus, resp.StatusCode()).
		Msg("uploaded profile image asset")

	return result.Key, nil
}

// Download fetches the raw bytes of assetID.
func (c *AssetClient) Download(ctx context.Context, assetID string) ([]byte, error) {
	var apiErr errorResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetError(&apiErr).
		Get(assetsPath + "/" + url.PathEscape(assetID))
	if err != nil {
		return nil, fmt.Errorf("download asset: %w", err)
	}
	if resp.IsError() {
		return nil, classify(resp.StatusCode(), apiErr.Label, apiErr.Message)
	}
	return resp.Body(), nil
}

func (c *AssetClient) URL(_ context.Context, assetID string) (string, error) {
	return c.baseURL + assetsPath + "/" + url.PathEscape(assetID), nil
}

// encodeUpload builds the multipart/mixed body: JSON metadata then the image part.
func encodeUpload(data []byte) ([]byte, string, error) {
	meta, err := json.Marshal(assetMetadata{Public: true, Retention: "eternal"})
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=utf-8")
	part, err := w.CreatePart(metaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(meta); err != nil {
		return nil, "", err
	}

	sum := md5.Sum(data)
	dataHeader := textproto.MIMEHeader{}
	dataHeader.Set("Content-Type", "image/jpeg")
	dataHeader.Set("Content-MD5", base64.StdEncoding.EncodeToString(sum[:]))
	part, err = w.CreatePart(dataHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "multipart/mixed; boundary=" + w.Boundary(), nil
}
