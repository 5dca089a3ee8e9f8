package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/loomchat/fedwire"
)

const version = "0.3.0"

type CLI struct {
	Version VersionCmd `cmd:"" help:"Print version information."`
	Check   CheckCmd   `cmd:"" help:"Validate an endpoint manifest's path histories and auth schemes."`
	Resolve ResolveCmd `cmd:"" help:"Print the path variant each endpoint resolves to for a version set."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println("fedwire " + version)
	return nil
}

type CheckCmd struct {
	Manifest string `arg:"" help:"Endpoint manifest (JSON)."`
}

func (c *CheckCmd) Run() error {
	m, err := loadManifest(c.Manifest)
	if err != nil {
		return err
	}
	var failed bool
	for _, e := range m.Endpoints {
		if _, err := e.metadata(); err != nil {
			failed = true
			fmt.Printf("FAIL %s: %v\n", e.Name, err)
			continue
		}
		fmt.Printf("ok   %s\n", e.Name)
	}
	if failed {
		return errors.New("manifest has invalid endpoints")
	}
	return nil
}

type ResolveCmd struct {
	Manifest string `arg:"" help:"Endpoint manifest (JSON)."`
	Versions string `help:"Comma-separated negotiated version set (e.g. r0,v1.1,v1.2)." short:"v" required:""`
	Unstable bool   `help:"Allow unstable path variants." short:"u"`
}

func (c *ResolveCmd) Run() error {
	m, err := loadManifest(c.Manifest)
	if err != nil {
		return err
	}
	var versions []fedwire.SpecVersion
	for _, s := range strings.Split(c.Versions, ",") {
		v, err := fedwire.ParseSpecVersion(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		versions = append(versions, v)
	}
	for _, e := range m.Endpoints {
		md, err := e.metadata()
		if err != nil {
			return err
		}
		rp, err := md.ResolvePath(versions, c.Unstable)
		if err != nil {
			fmt.Printf("%-32s unsupported: %v\n", e.Name, err)
			continue
		}
		fmt.Printf("%-32s %s %s (at %s)\n", e.Name, md.Method(), rp.Variant.Template, rp.Version)
	}
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("fedwire"),
		kong.Description("Inspection tools for fedwire endpoint definitions."),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
