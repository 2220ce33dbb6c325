//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package main

import (
	"errors"
	"fmt"
	"io"

	cli "github.com/urfave/cli/v2"

	"github.com/yahoo/eureka-client/config"
	"github.com/yahoo/eureka-client/config/consul"
	"github.com/yahoo/eureka-client/config/etcd"
	"github.com/yahoo/eureka-client/config/yaml"
)

type cmd struct {
	configFiles []string
	consul      string
	etcd        string
}

func getConfig(args []string) (config.Config, error) {
	cli, err := getCli(args)
	if err != nil {
		return nil, err
	}

	switch {
	case len(cli.consul) > 0:
		return consul.New(cli.consul)
	case len(cli.etcd) > 0:
		return etcd.New(cli.etcd)
	}

	return yaml.New(cli.configFiles...)
}

func getCli(args []string) (*cmd, error) {
	cm := cmd{}

	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "config",
			Usage: "path to a file in yaml format to read configuration, repeat to merge files in order",
		},
		&cli.StringFlag{
			Name:  "consul",
			Usage: "enable consul configuration management (path to a file in yaml format or -)",
		},
		&cli.StringFlag{
			Name:  "etcd",
			Usage: "enable etcd configuration management (path to a file in yaml format or -)",
		},
	}

	cli.AppHelpTemplate = `Eureka Client Agent

-config filename       path to a file in yaml format to read configuration
                       repeat it to merge files, the later files override
-consul filename or -  enable consul configuration management
-etcd   filename or -  enable etcd configuration management
-help, -h      show help
-version, -v   show version

In case of consul or etcd, if you set dash as argument, the agent assumes
they available at localhost with default configuration, the environment
variables EUREKA_CONFIG_CONSUL_* and EUREKA_CONFIG_ETCD_* override it.

`

	cli.VersionFlag = &cli.BoolFlag{
		Name: "version", Aliases: []string{"v"},
		Usage: "print only the version",
	}

	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Printf("Eureka Client Agent Version: %s\n\n", c.App.Version)
		cli.OsExiter(0)
	}

	cli.HelpPrinter = func(w io.Writer, templ string, data interface{}) {
		fmt.Fprint(w, templ)
		cli.OsExiter(0)
	}

	app := &cli.App{
		Version: config.GetVersion(),
		Flags:   flags,
		Action: func(c *cli.Context) error {
			cm = cmd{
				configFiles: c.StringSlice("config"),
				consul:      c.String("consul"),
				etcd:        c.String("etcd"),
			}

			if c.NumFlags() < 1 {
				cli.ShowAppHelp(c)
				return errors.New("configuration not specified")
			}

			return nil
		},
	}

	err := app.Run(args)

	return &cm, err
}
