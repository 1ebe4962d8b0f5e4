package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/leonardcser/objcache-mcp/internal/value"
)

// Serve accepts connections on l and answers protocol requests against c
// until l is closed.
func Serve(l net.Listener, c Cache) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn().Err(err).Msg("accept failed")
			continue
		}
		go HandleConn(conn, c)
	}
}

// HandleConn serves requests from one connection until it is closed or
// sends malformed input.
func HandleConn(conn net.Conn, c Cache) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		resp := dispatch(context.Background(), c, req)
		if !resp.OK {
			log.Debug().Str("op", req.Op).Str("id", req.ID.String()).Str("code", resp.Code).Msg(resp.Error)
		}
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func dispatch(ctx context.Context, c Cache, req Request) Response {
	switch req.Op {
	case OpAdd, OpUpdate:
		var data value.Value
		if req.Data != nil {
			data = *req.Data
		}
		opts := PutOptions{
			ExpiresIn: req.ExpiresIn,
			Metadata:  req.Metadata,
		}
		var (
			rec Record
			err error
		)
		if req.Op == OpAdd {
			rec, err = c.Add(ctx, req.ID, data, opts)
		} else {
			rec, err = c.Update(ctx, req.ID, data, opts)
		}
		if err != nil {
			return errorResponse(err)
		}
		return Response{OK: true, Found: true, Record: &rec}
	case OpGet:
		rec, ok, err := c.Get(ctx, req.ID)
		if err != nil {
			return errorResponse(err)
		}
		if !ok {
			return Response{OK: true}
		}
		return Response{OK: true, Found: true, Record: &rec}
	case OpGetAll:
		recs, err := c.GetAll(ctx)
		if err != nil {
			return errorResponse(err)
		}
		return Response{OK: true, Records: recs, Count: len(recs)}
	case OpDelete:
		if err := c.Delete(ctx, req.ID); err != nil {
			return errorResponse(err)
		}
		return Response{OK: true}
	case OpClear:
		if err := c.Clear(ctx); err != nil {
			return errorResponse(err)
		}
		return Response{OK: true}
	case OpCleanupExpired:
		n, err := c.CleanupExpired(ctx)
		if err != nil {
			return errorResponse(err)
		}
		return Response{OK: true, Count: n}
	case OpStats:
		st, err := c.Stats(ctx)
		if err != nil {
			return errorResponse(err)
		}
		return Response{OK: true, Stats: &st}
	}
	return Response{OK: false, Error: "unknown op " + req.Op}
}
