package main

import (
	"bufio"
	"context"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/voucher-checkout/internal/domain/voucher"
)

const maxLineBytes = 1 << 20

// record is one decoded line. A non-nil err marks the line as malformed.
type record struct {
	program voucher.Program
	err     error
	file    string
	line    int
}

// streamFile decodes each non-empty line of a gzip-compressed JSON-lines
// file and sends it to out.
func streamFile(ctx context.Context, path string, out chan<- record) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	n := 0
	for scanner.Scan() {
		n++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		p, err := decodeProgram(line)
		select {
		case out <- record{program: p, err: err, file: path, line: n}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

func decodeProgram(line []byte) (voucher.Program, error) {
	var p voucher.Program
	d := jx.DecodeBytes(line)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "title":
			p.Title, err = d.Str()
		case "min_order":
			p.MinOrder, err = decodeAmount(d)
		case "starts_at":
			p.StartsAt, err = decodeTime(d)
		case "expires_at":
			if d.Next() == jx.Null {
				return d.Null()
			}
			t, err := decodeTime(d)
			if err != nil {
				return err
			}
			p.ExpiresAt = &t
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
	if err != nil {
		return p, err
	}
	if p.ID == "" {
		return p, errors.New("missing id")
	}
	if p.Title == "" {
		return p, errors.Errorf("program %q: missing title", p.ID)
	}
	if p.MinOrder.IsNegative() {
		return p, errors.Errorf("program %q: negative min_order", p.ID)
	}
	return p, nil
}

func decodeAmount(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Null:
		return decimal.Zero, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	}
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, s)
}
