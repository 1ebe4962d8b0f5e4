package cache

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/leonardcser/objcache-mcp/internal/value"
)

const dialTimeout = 500 * time.Millisecond

var _ Cache = (*Client)(nil)

// Client implements Cache against a cache daemon listening on a Unix socket.
type Client struct {
	socketPath string
}

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Ping checks that the daemon accepts connections.
func (c *Client) Ping(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}
	return conn, nil
}

func (c *Client) do(ctx context.Context, req Request) (Response, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(&req); err != nil {
		return Response{}, &ConnectionError{Op: req.Op, Err: err}
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, &ConnectionError{Op: req.Op, Err: err}
	}
	if !resp.OK {
		return Response{}, responseError(resp)
	}
	return resp, nil
}

func writeRequest(op string, id Key, data value.Value, opts PutOptions) Request {
	return Request{
		Op:        op,
		ID:        id,
		Data:      &data,
		ExpiresIn: opts.ExpiresIn,
		Metadata:  opts.Metadata,
	}
}

func (c *Client) Add(ctx context.Context, id Key, data value.Value, opts PutOptions) (Record, error) {
	resp, err := c.do(ctx, writeRequest(OpAdd, id, data, opts))
	if err != nil || resp.Record == nil {
		return Record{}, err
	}
	return *resp.Record, nil
}

func (c *Client) Get(ctx context.Context, id Key) (Record, bool, error) {
	resp, err := c.do(ctx, Request{Op: OpGet, ID: id})
	if err != nil {
		return Record{}, false, err
	}
	if !resp.Found || resp.Record == nil {
		return Record{}, false, nil
	}
	return *resp.Record, true, nil
}

func (c *Client) GetAll(ctx context.Context) ([]Record, error) {
	resp, err := c.do(ctx, Request{Op: OpGetAll})
	if err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (c *Client) Update(ctx context.Context, id Key, data value.Value, opts PutOptions) (Record, error) {
	resp, err := c.do(ctx, writeRequest(OpUpdate, id, data, opts))
	if err != nil || resp.Record == nil {
		return Record{}, err
	}
	return *resp.Record, nil
}

func (c *Client) Delete(ctx context.Context, id Key) error {
	_, err := c.do(ctx, Request{Op: OpDelete, ID: id})
	return err
}

func (c *Client) Clear(ctx context.Context) error {
	_, err := c.do(ctx, Request{Op: OpClear})
	return err
}

func (c *Client) CleanupExpired(ctx context.Context) (int, error) {
	resp, err := c.do(ctx, Request{Op: OpCleanupExpired})
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *Client) Stats(ctx context.Context) (Stats, error) {
	resp, err := c.do(ctx, Request{Op: OpStats})
	if err != nil || resp.Stats == nil {
		return Stats{}, err
	}
	return *resp.Stats, nil
}
