package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/manifest"
)

// hashKey stores the manifest hash of the last successful registration.
const hashKey = "manifest/hash"

// SyncCommands registers the manifest's command surface with Discord. With a
// flashcore adapter attached, an unchanged manifest hash skips the round
// trip entirely; the hash only covers the registration-relevant surface, so
// handler or middleware edits never force a re-sync.
//
// Registration is scoped to the configured test guilds when set (changes
// propagate instantly there) and global otherwise.
func (c *Client) SyncCommands(ctx context.Context, m *manifest.Manifest) error {
	start := time.Now()

	hash := m.Hash()
	if skip, err := c.hashUnchanged(ctx, hash); err != nil {
		c.logger.Warn("manifest hash lookup failed, syncing anyway", "error", err)
	} else if skip {
		c.logger.Debug("command surface unchanged, skipping sync", "hash", hash)
		return nil
	}

	if c.clientID == "" {
		return fmt.Errorf("sync commands: application id is unknown, connect first or set the client id")
	}

	commands, err := BuildCommands(m)
	if err != nil {
		return fmt.Errorf("sync commands: %w", err)
	}

	scope := "global"
	if len(c.testGuilds) == 0 {
		_, err = c.session.ApplicationCommandBulkOverwrite(c.clientID, "", commands, discordgo.WithContext(ctx))
		if err != nil {
			err = fmt.Errorf("register global commands: %w", err)
		}
	} else {
		scope = fmt.Sprintf("%d test guilds", len(c.testGuilds))
		g, gctx := errgroup.WithContext(ctx)
		for _, guildID := range c.testGuilds {
			guildID := guildID
			g.Go(func() error {
				_, err := c.session.ApplicationCommandBulkOverwrite(c.clientID, guildID, commands, discordgo.WithContext(gctx))
				if err != nil {
					return fmt.Errorf("register commands in guild %s: %w", guildID, err)
				}
				return nil
			})
		}
		err = g.Wait()
	}
	if err != nil {
		return err
	}

	if c.flashcore != nil {
		if serr := c.flashcore.Set(ctx, hashKey, []byte(hash)); serr != nil {
			c.logger.Warn("storing manifest hash failed", "error", serr)
		}
	}

	c.logger.Info("command surface synced",
		"scope", scope,
		"commands", len(commands),
		"hash", hash,
		"duration", time.Since(start),
	)
	return nil
}

func (c *Client) hashUnchanged(ctx context.Context, hash string) (bool, error) {
	if c.flashcore == nil {
		return false, nil
	}
	stored, err := c.flashcore.Get(ctx, hashKey)
	if errors.Is(err, core.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return string(stored) == hash, nil
}
