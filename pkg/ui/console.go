package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Console prints command progress. Info needs Verbose, Debugf needs Debug;
// warnings and errors are always printed.
type Console struct {
	Verbose bool
	Debug   bool

	Out io.Writer
	Err io.Writer
}

func (c Console) stdout() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

func (c Console) stderr() io.Writer {
	if c.Err != nil {
		return c.Err
	}
	return os.Stderr
}

func (c Console) Infof(msg string, args ...any) {
	if c.Verbose || c.Debug {
		fmt.Fprintf(c.stdout(), color.GreenString("[info] ")+msg+"\n", args...)
	}
}

func (c Console) Debugf(msg string, args ...any) {
	if c.Debug {
		fmt.Fprintf(c.stdout(), color.CyanString("[debug] ")+msg+"\n", args...)
	}
}

func (c Console) Warnf(msg string, args ...any) {
	fmt.Fprintf(c.stderr(), color.YellowString("[warn] ")+msg+"\n", args...)
}

func (c Console) Errorf(msg string, args ...any) {
	fmt.Fprintf(c.stderr(), color.RedString("[error] ")+msg+"\n", args...)
}

// ErrorfAndReturn prints the error in debug mode and returns it.
func (c Console) ErrorfAndReturn(msg string, args ...any) error {
	err := fmt.Errorf(msg, args...)
	if c.Debug {
		c.Errorf("%v", err)
	}
	return err
}
