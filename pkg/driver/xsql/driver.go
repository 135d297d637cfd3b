package xsql

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/omeyang/sqlmark/pkg/mark/xmark"
)

// =============================================================================
// 驱动包装
// =============================================================================

// Driver 包装底层 driver.Driver，为每个连接附加注释能力。
type Driver struct {
	driver.Driver
	annotator *xmark.Annotator
}

var _ driver.Driver = (*Driver)(nil)

// Wrap 包装底层驱动。annotator 为 nil 时 panic（编程错误，立即暴露）。
func Wrap(d driver.Driver, a *xmark.Annotator) *Driver {
	if a == nil {
		panic("xsql: nil annotator")
	}
	return &Driver{Driver: d, annotator: a}
}

// Register 包装底层驱动并以 name 注册到 database/sql。
// 与 sql.Register 相同，重复注册同名驱动会 panic。
func Register(name string, d driver.Driver, a *xmark.Annotator) {
	sql.Register(name, Wrap(d, a))
}

// Open 打开底层连接并包装。
func (d *Driver) Open(name string) (driver.Conn, error) {
	c, err := d.Driver.Open(name)
	if err != nil {
		return nil, err
	}
	return &conn{Conn: c, annotator: d.annotator}, nil
}

// OpenConnector 透传底层 DriverContext 能力，连接器同样被包装。
func (d *Driver) OpenConnector(name string) (driver.Connector, error) {
	if dc, ok := d.Driver.(driver.DriverContext); ok {
		c, err := dc.OpenConnector(name)
		if err != nil {
			return nil, err
		}
		return &connector{Connector: c, drv: d}, nil
	}
	return dsnConnector{dsn: name, drv: d}, nil
}

// =============================================================================
// 连接器
// =============================================================================

// WrapConnector 包装 driver.Connector，适用于 sql.OpenDB 的接入方式。
func WrapConnector(c driver.Connector, a *xmark.Annotator) driver.Connector {
	return &connector{Connector: c, drv: Wrap(c.Driver(), a)}
}

type connector struct {
	driver.Connector
	drv *Driver
}

func (c *connector) Connect(ctx context.Context) (driver.Conn, error) {
	cn, err := c.Connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &conn{Conn: cn, annotator: c.drv.annotator}, nil
}

func (c *connector) Driver() driver.Driver {
	return c.drv
}

// dsnConnector 为不支持 DriverContext 的旧驱动兜底。
type dsnConnector struct {
	dsn string
	drv *Driver
}

func (c dsnConnector) Connect(context.Context) (driver.Conn, error) {
	return c.drv.Open(c.dsn)
}

func (c dsnConnector) Driver() driver.Driver {
	return c.drv
}

// =============================================================================
// 按查询跳过
// =============================================================================

type skipKey struct{}

// Skip 返回标记了"跳过注释"的 context。
// 对注释敏感的语句（如某些 DDL、缓存键按原文计算的场景）可按查询粒度关闭。
func Skip(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipKey{}, true)
}

// skipped 判断 ctx 是否标记了跳过。
func skipped(ctx context.Context) bool {
	v, _ := ctx.Value(skipKey{}).(bool)
	return v
}
