package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/practrac/practrac/core/drill"
)

// drillLibrary is the YAML document of a drills import or export.
type drillLibrary struct {
	Drills []drill.Drill `yaml:"drills"`
}

func (cli *commandLine) drillsCmd() *cobra.Command {
	var uname string

	cmd := &cobra.Command{
		Use:   "drills",
		Short: "Import or export the drill library of a coach",
	}
	cmd.PersistentFlags().StringVarP(&uname, "coach", "c", "", "The username or email of the coach owning the library")
	_ = cmd.MarkPersistentFlagRequired("coach")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "import FILE",
			Short: "Import drills from a YAML file (- reads stdin)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				r, closeFn, err := openInput(args[0], cmd.InOrStdin())
				if err != nil {
					return err
				}
				defer closeFn()

				n, err := cli.importDrills(cmd.Context(), uname, r)
				if err != nil {
					return err
				}
				cli.printf("imported %d drills\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "export FILE",
			Short: "Export the active drills to a YAML file (- writes stdout)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if args[0] == "-" {
					return cli.exportDrills(cmd.Context(), uname, cli.out)
				}
				f, err := os.Create(args[0])
				if err != nil {
					return errors.Wrap(err, "creating export file")
				}
				if err = cli.exportDrills(cmd.Context(), uname, f); err != nil {
					_ = f.Close()
					return err
				}
				return errors.Wrap(f.Close(), "closing export file")
			},
		},
	)
	return cmd
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening import file")
	}
	return f, func() { _ = f.Close() }, nil
}

func (cli *commandLine) importDrills(ctx context.Context, uname string, r io.Reader) (int, error) {
	c, err := cli.coachSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return 0, err
	}

	var lib drillLibrary
	if err = yaml.NewDecoder(r).Decode(&lib); err != nil && err != io.EOF {
		return 0, errors.Wrap(err, "decoding drills")
	}

	for i, d := range lib.Drills {
		nd := drill.NewDrill{
			Name:            d.Name,
			Category:        d.Category,
			SkillLevel:      d.SkillLevel,
			Description:     d.Description,
			MinPlayers:      d.MinPlayers,
			MaxPlayers:      d.MaxPlayers,
			DurationMinutes: d.DurationMinutes,
			Equipment:       d.Equipment,
		}
		if err = nd.Validate(cli.validate); err != nil {
			return 0, errors.Wrapf(err, "drills[%d]", i)
		}
		d.Name, d.Category, d.SkillLevel = nd.Name, nd.Category, nd.SkillLevel
		d.Description, d.Equipment = nd.Description, nd.Equipment

		for j, v := range d.Videos {
			nv := drill.NewVideo{Title: v.Title, URL: v.URL}
			if err = nv.Validate(cli.validate); err != nil {
				return 0, errors.Wrapf(err, "drills[%d].videos[%d]", i, j)
			}
			d.Videos[j].Title, d.Videos[j].URL = nv.Title, nv.URL
		}
		lib.Drills[i] = d
	}

	return cli.drillSvc.Import(ctx, c.ID, lib.Drills)
}

func (cli *commandLine) exportDrills(ctx context.Context, uname string, w io.Writer) error {
	c, err := cli.coachSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	drills, err := cli.drillSvc.Query(ctx, &drill.QueryFilter{CoachID: c.ID}, nil)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err = enc.Encode(drillLibrary{Drills: drills}); err != nil {
		return errors.Wrap(err, "encoding drills")
	}
	if err = enc.Close(); err != nil {
		return errors.Wrap(err, "encoding drills")
	}
	cli.logger.Info(fmt.Sprintf("exported %d drills", len(drills)), map[string]interface{}{"coach": c.Username})
	return nil
}
