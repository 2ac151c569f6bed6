// internal/pkg/httpclient/client.go
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Resolver 将服务名解析为可访问的实例地址。
// 由 nacos.Client 实现，测试时可以用静态表替代。
type Resolver interface {
	DiscoverServiceInstance(serviceName string) (string, int, error)
}

// Client 是一个可追踪的、基于服务发现的 HTTP 客户端
type Client struct {
	Tracer     trace.Tracer
	Resolver   Resolver
	HTTPClient *http.Client
}

// NewClient 创建一个新的客户端实例
func NewClient(tracer trace.Tracer, resolver Resolver) *Client {
	// 不设置 Timeout 字段，让每次请求完全受控于传入的 context
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
	}
	return &Client{
		Tracer:     tracer,
		Resolver:   resolver,
		HTTPClient: httpClient,
	}
}

// CallService 向指定服务的指定路径发起 POST 请求，只关心是否成功。
func (c *Client) CallService(ctx context.Context, serviceName, path string, params url.Values) error {
	_, err := c.do(ctx, http.MethodPost, serviceName, path, params)
	return err
}

// GetJSON 向指定服务发起 GET 请求，并把响应体解码到 out。
func (c *Client) GetJSON(ctx context.Context, serviceName, path string, params url.Values, out interface{}) error {
	body, err := c.do(ctx, http.MethodGet, serviceName, path, params)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (c *Client) do(ctx context.Context, method, serviceName, path string, params url.Values) ([]byte, error) {
	ctx, span := c.Tracer.Start(ctx, fmt.Sprintf("call-%s", serviceName), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	ip, port, err := c.Resolver.DiscoverServiceInstance(serviceName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	downstreamURL := url.URL{
		Scheme:   "http",
		Host:     fmt.Sprintf("%s:%d", ip, port),
		Path:     path,
		RawQuery: params.Encode(),
	}

	req, err := http.NewRequestWithContext(ctx, method, downstreamURL.String(), nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("http.url", downstreamURL.String()),
		attribute.String("http.method", method),
		attribute.String("peer.service", serviceName),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("service %s%s returned status %s", serviceName, path, resp.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return io.ReadAll(resp.Body)
}
