package cbr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/mpetrov/bank-cards/internal/config"
)

// bankMargin is added on top of the central bank rate.
const bankMargin = 5.0

// cacheTTL bounds how often the upstream SOAP service is queried.
const cacheTTL = 15 * time.Minute

// Client handles integration with the Central Bank of Russia key-rate
// service.
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger

	mu        sync.Mutex
	cached    float64
	fetchedAt time.Time
}

// NewClient initializes a new CBR client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url: cfg.CBRURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// GetKeyRate retrieves the current key rate plus the bank margin,
// serving a cached value when it is fresh enough.
func (c *Client) GetKeyRate(ctx context.Context) (float64, error) {
	c.mu.Lock()
	if !c.fetchedAt.IsZero() && time.Since(c.fetchedAt) < cacheTTL {
		rate := c.cached
		c.mu.Unlock()
		return rate, nil
	}
	c.mu.Unlock()

	body, err := c.sendRequest(ctx, c.buildSOAPRequest())
	if err != nil {
		return 0, err
	}

	rate, err := c.parseXMLResponse(body)
	if err != nil {
		return 0, err
	}
	rate += bankMargin

	c.mu.Lock()
	c.cached = rate
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	c.log.Infof("Retrieved key rate: %.2f%% (including %.2f%% bank margin)", rate, bankMargin)
	return rate, nil
}

// buildSOAPRequest creates a SOAP request for the key rate over the last
// 30 days
func (c *Client) buildSOAPRequest() string {
	fromDate := time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	toDate := time.Now().Format("2006-01-02")
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
		<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
			<soap12:Body>
				<KeyRate xmlns="http://web.cbr.ru/">
					<fromDate>%s</fromDate>
					<ToDate>%s</ToDate>
				</KeyRate>
			</soap12:Body>
		</soap12:Envelope>`, fromDate, toDate)
}

func (c *Client) sendRequest(ctx context.Context, soapRequest string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBufferString(soapRequest))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://web.cbr.ru/KeyRate")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debugf("CBR XML response: %s", string(body))
	return body, nil
}

// parseXMLResponse extracts the latest key rate from the SOAP response
func (c *Client) parseXMLResponse(rawBody []byte) (float64, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return 0, fmt.Errorf("failed to parse XML: %w", err)
	}

	krElements := doc.FindElements("//diffgram/KeyRate/KR")
	if len(krElements) == 0 {
		return 0, fmt.Errorf("no key rate data found in XML")
	}

	rateElement := krElements[0].FindElement("./Rate")
	if rateElement == nil {
		return 0, fmt.Errorf("rate element not found in XML")
	}

	var rate float64
	if _, err := fmt.Sscanf(rateElement.Text(), "%f", &rate); err != nil {
		return 0, fmt.Errorf("failed to parse rate: %w", err)
	}

	return rate, nil
}
