package cli

import (
	"context"
	"fmt"

	"mmt/internal/panel"
	"mmt/internal/version"
)

// StatusCmd returns the status command.
func StatusCmd(a *app) *Command {
	return &Command{
		Usage: "status [--json]",
		Short: "Show the drop box state",
		Long:  "Restore the selected workspace and show the drop box state, one key=value per line.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			s, err := loadStatus(o, a, args)
			if err != nil {
				return err
			}

			printStatus(o, s)

			return nil
		},
		JSON: func(_ context.Context, o *IO, args []string) (any, error) {
			s, err := loadStatus(o, a, args)
			if err != nil {
				return nil, err
			}

			return newStatusView(s), nil
		},
	}
}

func loadStatus(o *IO, a *app, args []string) (panel.State, error) {
	if len(args) != 0 {
		return panel.State{}, fmt.Errorf("%w: status takes no arguments", ErrArgCount)
	}

	p, err := a.panel(o, a.packer(a.cfg.PackDirAbs))
	if err != nil {
		return panel.State{}, err
	}

	return p.State(), nil
}

func printStatus(o *IO, s panel.State) {
	o.KV("pack_allowed", s.PackAllowed)
	o.KV("busy", s.Busy)
	o.KV("box_color", s.BoxColor)
	o.KV("description_color", s.DescriptionColor)
	o.KV("instructions", s.Instructions)
	o.KV("can_rebuild", s.CanRebuild)
	o.KV("workspace", s.LastDirectory)
	printVersion(o, s.Version, s.HasVersion)
}

type statusView struct {
	PackAllowed      bool    `json:"pack_allowed"`
	Busy             bool    `json:"busy"`
	BoxColor         string  `json:"box_color"`
	DescriptionColor string  `json:"description_color"`
	Instructions     string  `json:"instructions"`
	CanRebuild       bool    `json:"can_rebuild"`
	Workspace        string  `json:"workspace"`
	Version          string  `json:"version,omitempty"`
	Version64        *uint64 `json:"version64,omitempty"`
}

func newStatusView(s panel.State) statusView {
	view := statusView{
		PackAllowed:      s.PackAllowed,
		Busy:             s.Busy,
		BoxColor:         s.BoxColor,
		DescriptionColor: s.DescriptionColor,
		Instructions:     s.Instructions,
		CanRebuild:       s.CanRebuild,
		Workspace:        s.LastDirectory,
	}

	if s.HasVersion {
		packed := s.Version
		view.Version = version.Unpack(packed).String()
		view.Version64 = &packed
	}

	return view
}
