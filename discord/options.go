package discord

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/manifest"
)

var optionTypes = map[core.OptionType]discordgo.ApplicationCommandOptionType{
	core.OptionString:      discordgo.ApplicationCommandOptionString,
	core.OptionInteger:     discordgo.ApplicationCommandOptionInteger,
	core.OptionNumber:      discordgo.ApplicationCommandOptionNumber,
	core.OptionBoolean:     discordgo.ApplicationCommandOptionBoolean,
	core.OptionUser:        discordgo.ApplicationCommandOptionUser,
	core.OptionChannel:     discordgo.ApplicationCommandOptionChannel,
	core.OptionRole:        discordgo.ApplicationCommandOptionRole,
	core.OptionMentionable: discordgo.ApplicationCommandOptionMentionable,
	core.OptionAttachment:  discordgo.ApplicationCommandOptionAttachment,
}

// commandPath walks an interaction's option tree to the invoked subcommand
// and returns the full slash-joined path plus the leaf's value options.
func commandPath(data discordgo.ApplicationCommandInteractionData) (string, []*discordgo.ApplicationCommandInteractionDataOption) {
	segments := []string{data.Name}
	options := data.Options

	for len(options) == 1 {
		opt := options[0]
		if opt.Type != discordgo.ApplicationCommandOptionSubCommand &&
			opt.Type != discordgo.ApplicationCommandOptionSubCommandGroup {
			break
		}
		segments = append(segments, opt.Name)
		options = opt.Options
	}

	return strings.Join(segments, "/"), options
}

// decodeOptions converts leaf interaction options into the normalized map.
// Snowflake-backed options (user, channel, role, mentionable, attachment)
// decode to their id string. The focused option of an autocomplete request is
// returned separately and excluded from the map when it has no value yet.
func decodeOptions(options []*discordgo.ApplicationCommandInteractionDataOption) (map[string]any, string) {
	decoded := make(map[string]any, len(options))
	focused := ""

	for _, opt := range options {
		if opt.Focused {
			focused = opt.Name
		}
		switch opt.Type {
		case discordgo.ApplicationCommandOptionString:
			decoded[opt.Name] = opt.StringValue()
		case discordgo.ApplicationCommandOptionInteger:
			decoded[opt.Name] = opt.IntValue()
		case discordgo.ApplicationCommandOptionNumber:
			decoded[opt.Name] = opt.FloatValue()
		case discordgo.ApplicationCommandOptionBoolean:
			decoded[opt.Name] = opt.BoolValue()
		case discordgo.ApplicationCommandOptionUser,
			discordgo.ApplicationCommandOptionChannel,
			discordgo.ApplicationCommandOptionRole,
			discordgo.ApplicationCommandOptionMentionable,
			discordgo.ApplicationCommandOptionAttachment:
			if s, ok := opt.Value.(string); ok {
				decoded[opt.Name] = s
			}
		}
	}

	return decoded, focused
}

func buildOptions(options []core.CommandOption) ([]*discordgo.ApplicationCommandOption, error) {
	out := make([]*discordgo.ApplicationCommandOption, 0, len(options))
	for _, opt := range options {
		typ, ok := optionTypes[opt.Type]
		if !ok {
			return nil, fmt.Errorf("option %q has unknown type %q", opt.Name, opt.Type)
		}
		built := &discordgo.ApplicationCommandOption{
			Type:         typ,
			Name:         opt.Name,
			Description:  opt.Description,
			Required:     opt.Required,
			Autocomplete: opt.Autocomplete,
		}
		if built.Description == "" {
			built.Description = opt.Name
		}
		for _, choice := range opt.Choices {
			built.Choices = append(built.Choices, &discordgo.ApplicationCommandOptionChoice{
				Name:  choice.Name,
				Value: choice.Value,
			})
		}
		out = append(out, built)
	}
	return out, nil
}

// BuildCommands translates the manifest into the application command list
// sent to Discord. Nested paths become subcommand groups and subcommands; a
// root path cannot carry its own handler once children exist under it.
func BuildCommands(m *manifest.Manifest) ([]*discordgo.ApplicationCommand, error) {
	// Group manifest entries by root name, keeping deterministic order.
	roots := make(map[string][]manifest.Command)
	var order []string
	for _, cmd := range m.Commands {
		root := strings.SplitN(cmd.Path, "/", 2)[0]
		if _, seen := roots[root]; !seen {
			order = append(order, root)
		}
		roots[root] = append(roots[root], cmd)
	}
	sort.Strings(order)

	out := make([]*discordgo.ApplicationCommand, 0, len(order)+len(m.ContextMenus))
	for _, root := range order {
		built, err := buildCommandTree(root, roots[root])
		if err != nil {
			return nil, err
		}
		out = append(out, built)
	}

	for _, menu := range m.ContextMenus {
		built := &discordgo.ApplicationCommand{
			Name:                     menu.Name,
			DefaultMemberPermissions: menu.DefaultMemberPermissions,
		}
		switch menu.Kind {
		case core.ContextMenuUser:
			built.Type = discordgo.UserApplicationCommand
		case core.ContextMenuMessage:
			built.Type = discordgo.MessageApplicationCommand
		default:
			return nil, fmt.Errorf("context menu %q has unknown kind %q", menu.Name, menu.Kind)
		}
		out = append(out, built)
	}

	return out, nil
}

func buildCommandTree(root string, cmds []manifest.Command) (*discordgo.ApplicationCommand, error) {
	built := &discordgo.ApplicationCommand{
		Type: discordgo.ChatApplicationCommand,
		Name: root,
	}

	var hasChildren bool
	for _, cmd := range cmds {
		if cmd.Path != root {
			hasChildren = true
		}
	}

	// Subcommand groups, keyed by their segment name.
	groups := make(map[string]*discordgo.ApplicationCommandOption)

	for _, cmd := range cmds {
		segments := strings.Split(cmd.Path, "/")

		if len(segments) == 1 {
			if hasChildren {
				return nil, fmt.Errorf("command %q cannot have both a handler and subcommands", root)
			}
			built.Description = cmd.Description
			built.DefaultMemberPermissions = cmd.DefaultMemberPermissions
			built.DMPermission = cmd.DMPermission
			opts, err := buildOptions(cmd.Options)
			if err != nil {
				return nil, err
			}
			built.Options = opts
			continue
		}

		opts, err := buildOptions(cmd.Options)
		if err != nil {
			return nil, err
		}
		leaf := &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        segments[len(segments)-1],
			Description: cmd.Description,
			Options:     opts,
		}
		if leaf.Description == "" {
			leaf.Description = leaf.Name
		}

		switch len(segments) {
		case 2:
			built.Options = append(built.Options, leaf)
		case 3:
			group, ok := groups[segments[1]]
			if !ok {
				group = &discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:        segments[1],
					Description: segments[1],
				}
				groups[segments[1]] = group
				built.Options = append(built.Options, group)
			}
			group.Options = append(group.Options, leaf)
		default:
			return nil, fmt.Errorf("command path %q is nested too deep", cmd.Path)
		}
	}

	if built.Description == "" {
		built.Description = root
	}

	return built, nil
}
