package network

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"pe-tracker/src/logger"
	"pe-tracker/src/models"
)

// -----------------------------------------------------------------------------

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// -----------------------------------------------------------------------------

type NetworkManager struct {
	Config *models.MConfig
	Client *http.Client
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewNetworkManager(cfg *models.MConfig, log *logger.Logger) *NetworkManager {
	return &NetworkManager{
		Config: cfg,
		Logger: log,
		Client: &http.Client{
			Timeout: time.Duration(cfg.Network.RequestTimeout) * time.Second,
		},
	}
}

// -----------------------------------------------------------------------------

func (nm *NetworkManager) userAgent() string {
	if nm.Config.Network.UserAgent != "" {
		return nm.Config.Network.UserAgent
	}
	return defaultUserAgent
}

// -----------------------------------------------------------------------------

// Get performs a GET request with retries and exponential backoff.
func (nm *NetworkManager) Get(urlStr string, params map[string]string) ([]byte, error) {
	reqUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqUrl.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqUrl.RawQuery = q.Encode()

	finalUrl := reqUrl.String()

	maxRetries := nm.Config.Network.MaxRetries
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(i*i) * time.Second) // Exponential backoff
		}

		req, err := http.NewRequest("GET", finalUrl, nil)
		if err != nil {
			return nil, err
		}

		req.Header.Set("User-Agent", nm.userAgent())

		resp, err := nm.Client.Do(req)
		if err != nil {
			lastErr = err
			nm.Logger.Info("Request failed (attempt %d/%d): %v", i+1, maxRetries+1, err)
			continue
		}

		if resp.StatusCode == 429 || resp.StatusCode == 403 {
			resp.Body.Close()
			lastErr = fmt.Errorf("blocked (status %d)", resp.StatusCode)
			nm.Logger.Info("Request blocked (%d), backing off", resp.StatusCode)
			continue
		}

		if resp.StatusCode != 200 {
			resp.Body.Close()
			lastErr = fmt.Errorf("bad status: %d", resp.StatusCode)
			nm.Logger.Info("Bad status %d", resp.StatusCode)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %v", lastErr)
}
