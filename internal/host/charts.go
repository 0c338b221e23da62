package host

import (
	"github.com/woxQAQ/wbg-host/internal/charts"
	"github.com/woxQAQ/wbg-host/internal/dom"
	"github.com/woxQAQ/wbg-host/internal/jsval"
)

func chartEntries() []*Entry {
	return []*Entry{
		entry("echarts.init", "iiii>i", func(c *Call) error {
			opts := c.Take(3)
			el, err := receiver[*dom.Node](c, 0, "HTMLElement")
			if err != nil {
				return err
			}
			theme, err := c.OptionalStr(1)
			if err != nil {
				return err
			}
			var name string
			if theme != nil {
				name = *theme
			}
			if c.Env().Charts == nil {
				return jsval.NewReferenceError("echarts is not defined")
			}
			chart, err := c.Env().Charts.Init(el, name, opts)
			if err != nil {
				return err
			}
			c.ReturnObject(chart)
			return nil
		}),
		entry("ECharts.setOption", "ii>", func(c *Call) error {
			opt := c.Take(1)
			chart, err := receiver[*charts.Chart](c, 0, "ECharts")
			if err != nil {
				return err
			}
			return chart.SetOption(opt, false)
		}),
		entry("ECharts.on", "iiii>", func(c *Call) error {
			fn := c.Take(3)
			chart, err := receiver[*charts.Chart](c, 0, "ECharts")
			if err != nil {
				return err
			}
			event, err := c.Str(1)
			if err != nil {
				return err
			}
			handler, ok := fn.(*jsval.Function)
			if !ok {
				return jsval.NewTypeError("chart event handler is not a function")
			}
			chart.On(event, handler)
			return nil
		}),
	}
}
