package xsql

import (
	"context"
	"database/sql/driver"

	"github.com/omeyang/sqlmark/pkg/mark/xmark"
)

// conn 包装 driver.Conn，在查询下发前附加注释。
type conn struct {
	driver.Conn
	annotator *xmark.Annotator
}

var (
	_ driver.Conn               = (*conn)(nil)
	_ driver.ConnPrepareContext = (*conn)(nil)
	_ driver.ExecerContext      = (*conn)(nil)
	_ driver.QueryerContext     = (*conn)(nil)
	_ driver.ConnBeginTx        = (*conn)(nil)
	_ driver.Pinger             = (*conn)(nil)
	_ driver.SessionResetter    = (*conn)(nil)
	_ driver.NamedValueChecker  = (*conn)(nil)
)

// annotate 为查询附加注释。跳过标记或空注释时返回原查询。
func (c *conn) annotate(ctx context.Context, query string) (string, error) {
	if skipped(ctx) {
		return query, nil
	}
	return c.annotator.AnnotateContext(ctx, query)
}

// Prepare 旧接口路径：无执行单元可查，仅附加静态/Registry 标签。
func (c *conn) Prepare(query string) (driver.Stmt, error) {
	annotated, err := c.annotator.Annotate(nil, query)
	if err != nil {
		return nil, err
	}
	return c.Conn.Prepare(annotated)
}

func (c *conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	annotated, err := c.annotate(ctx, query)
	if err != nil {
		return nil, err
	}
	if pc, ok := c.Conn.(driver.ConnPrepareContext); ok {
		return pc.PrepareContext(ctx, annotated)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return c.Conn.Prepare(annotated)
}

func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if ec, ok := c.Conn.(driver.ExecerContext); ok {
		annotated, err := c.annotate(ctx, query)
		if err != nil {
			return nil, err
		}
		return ec.ExecContext(ctx, annotated, args)
	}
	if execer, ok := c.Conn.(driver.Execer); ok { //nolint:staticcheck // 旧驱动兜底
		dargs, err := namedValueToValue(args)
		if err != nil {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		annotated, err := c.annotate(ctx, query)
		if err != nil {
			return nil, err
		}
		return execer.Exec(annotated, dargs)
	}
	return nil, driver.ErrSkip
}

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if qc, ok := c.Conn.(driver.QueryerContext); ok {
		annotated, err := c.annotate(ctx, query)
		if err != nil {
			return nil, err
		}
		return qc.QueryContext(ctx, annotated, args)
	}
	if queryer, ok := c.Conn.(driver.Queryer); ok { //nolint:staticcheck // 旧驱动兜底
		dargs, err := namedValueToValue(args)
		if err != nil {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		annotated, err := c.annotate(ctx, query)
		if err != nil {
			return nil, err
		}
		return queryer.Query(annotated, dargs)
	}
	return nil, driver.ErrSkip
}

func (c *conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if bt, ok := c.Conn.(driver.ConnBeginTx); ok {
		return bt.BeginTx(ctx, opts)
	}
	return c.Conn.Begin() //nolint:staticcheck // 旧驱动兜底
}

func (c *conn) Ping(ctx context.Context) error {
	if p, ok := c.Conn.(driver.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (c *conn) ResetSession(ctx context.Context) error {
	if r, ok := c.Conn.(driver.SessionResetter); ok {
		return r.ResetSession(ctx)
	}
	return nil
}

func (c *conn) CheckNamedValue(value *driver.NamedValue) error {
	if nvc, ok := c.Conn.(driver.NamedValueChecker); ok {
		return nvc.CheckNamedValue(value)
	}
	return driver.ErrSkip
}

// namedValueToValue 将 NamedValue 降级为 Value，供旧接口兜底路径使用。
func namedValueToValue(named []driver.NamedValue) ([]driver.Value, error) {
	args := make([]driver.Value, len(named))
	for i, nv := range named {
		if len(nv.Name) > 0 {
			return nil, driver.ErrSkip
		}
		args[i] = nv.Value
	}
	return args, nil
}
