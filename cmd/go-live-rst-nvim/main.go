package main

import (
	"log"

	"go-live-rst/internal/host"

	"github.com/neovim/go-client/nvim/plugin"
)

// Set up the connection to Neovim, register handlers and serve requests
// until Neovim closes the channel.
func main() {
	plugin.Main(func(p *plugin.Plugin) error {
		log.Println("[go-live-rst] registering handlers")
		return host.Register(p)
	})
}
