package discord

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KirkDiggler/tabletop/internal/models"
	gameService "github.com/KirkDiggler/tabletop/internal/services/game"
	playerService "github.com/KirkDiggler/tabletop/internal/services/player"
	sessionService "github.com/KirkDiggler/tabletop/internal/services/session"
	"github.com/bwmarrin/discordgo"
)

// Button custom IDs are "<prefix><action>:<session id>"
const (
	buttonPrefix = "table:"

	actionJoin  = "join"
	actionLeave = "leave"
	actionStart = "start"
	actionPass  = "pass"
)

// maxStateLength keeps the state field inside Discord's embed field limit
const maxStateLength = 1000

func buttonID(action, sessionID string) string {
	return buttonPrefix + action + ":" + sessionID
}

// parseButtonID splits a custom ID produced by buttonID
func parseButtonID(customID string) (action, sessionID string, ok bool) {
	rest, found := strings.CutPrefix(customID, buttonPrefix)
	if !found {
		return "", "", false
	}

	action, sessionID, found = strings.Cut(rest, ":")
	if !found || action == "" || sessionID == "" {
		return "", "", false
	}

	return action, sessionID, true
}

// sessionView is everything needed to draw one session
type sessionView struct {
	Session *models.Session
	Game    *models.GameDefinition
	Players []*models.Player
	Notice  string
}

// playerName falls back to the raw id for players that could not be loaded
func (v *sessionView) playerName(id string) string {
	for _, p := range v.Players {
		if p.ID == id {
			return p.Name
		}
	}

	return id
}

func renderSession(v *sessionView) *discordgo.InteractionResponseData {
	session := v.Session

	title := "Session"
	if v.Game != nil {
		title = v.Game.Name
	}

	names := make([]string, 0, len(session.PlayerIDs))
	current := session.CurrentPlayerID()
	for i, id := range session.PlayerIDs {
		line := fmt.Sprintf("%d. %s", i+1, v.playerName(id))
		if id == current {
			line += " ⬅️"
		}
		names = append(names, line)
	}

	roster := strings.Join(names, "\n")
	if roster == "" {
		roster = "_nobody yet_"
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Status",
			Value:  string(session.Status),
			Inline: true,
		},
		{
			Name:   "Players",
			Value:  fmt.Sprintf("%d (%d-%d)", len(session.PlayerIDs), session.MinPlayers, session.MaxPlayers),
			Inline: true,
		},
		{
			Name:  "Roster",
			Value: roster,
		},
	}

	if current != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Turn",
			Value:  v.playerName(current),
			Inline: true,
		})
	}

	fields = append(fields, &discordgo.MessageEmbedField{
		Name:  "State",
		Value: "```json\n" + truncate(string(session.State), maxStateLength) + "\n```",
	})

	color := colorInfo
	if session.Status == models.SessionStatusActive {
		color = colorOK
	}

	return &discordgo.InteractionResponseData{
		Content: v.Notice,
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       title,
				Description: fmt.Sprintf("Session `%s`", session.ID),
				Color:       color,
				Fields:      fields,
			},
		},
		Components: sessionButtons(session),
	}
}

// sessionButtons offers the actions that can apply in the session's status
func sessionButtons(session *models.Session) []discordgo.MessageComponent {
	var buttons []discordgo.MessageComponent

	switch session.Status {
	case models.SessionStatusWaiting:
		buttons = []discordgo.MessageComponent{
			discordgo.Button{Label: "Join", Style: discordgo.PrimaryButton, CustomID: buttonID(actionJoin, session.ID)},
			discordgo.Button{Label: "Start", Style: discordgo.SuccessButton, CustomID: buttonID(actionStart, session.ID)},
			discordgo.Button{Label: "Leave", Style: discordgo.SecondaryButton, CustomID: buttonID(actionLeave, session.ID)},
		}
	case models.SessionStatusActive:
		buttons = []discordgo.MessageComponent{
			discordgo.Button{Label: "Pass", Style: discordgo.PrimaryButton, CustomID: buttonID(actionPass, session.ID)},
			discordgo.Button{Label: "Leave", Style: discordgo.SecondaryButton, CustomID: buttonID(actionLeave, session.ID)},
		}
	default:
		return []discordgo.MessageComponent{}
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: buttons},
	}
}

func renderGame(game *models.GameDefinition, notice string) *discordgo.InteractionResponseData {
	schema := "_unconstrained_"
	if len(game.StateSchema) > 0 {
		schema = "```json\n" + truncate(string(game.StateSchema), maxStateLength) + "\n```"
	}

	return &discordgo.InteractionResponseData{
		Content: notice,
		Embeds: []*discordgo.MessageEmbed{
			{
				Title: game.Name,
				Color: colorInfo,
				Fields: []*discordgo.MessageEmbedField{
					{Name: "Players", Value: fmt.Sprintf("%d-%d", game.MinPlayers, game.MaxPlayers), Inline: true},
					{Name: "State schema", Value: schema},
				},
			},
		},
	}
}

func renderGameList(games []*models.GameDefinition) *discordgo.InteractionResponseData {
	if len(games) == 0 {
		return &discordgo.InteractionResponseData{
			Content: "No games defined yet. Add one with `/table newgame`.",
		}
	}

	lines := make([]string, 0, len(games))
	for _, g := range games {
		lines = append(lines, fmt.Sprintf("**%s** (%d-%d players)", g.Name, g.MinPlayers, g.MaxPlayers))
	}

	return &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       "Games",
				Description: strings.Join(lines, "\n"),
				Color:       colorInfo,
			},
		},
	}
}

// friendlyError turns a service error into a message for the user. expected is
// false for failures the user cannot fix, which are logged.
func friendlyError(err error) (message string, expected bool) {
	var countErr *sessionService.PlayerCountError
	var stateErr *sessionService.StateError
	var defErr *models.DefinitionError
	var transErr *models.TransitionError

	switch {
	case errors.As(err, &countErr):
		return fmt.Sprintf("This session needs %d to %d players to start, it has %d.", countErr.Min, countErr.Max, countErr.Current), true
	case errors.As(err, &stateErr):
		return "Could not apply the move, " + stateErr.Error(), true
	case errors.As(err, &defErr):
		return "Could not save the game, " + defErr.Error(), true
	case errors.Is(err, sessionService.ErrInvalidGameStart):
		return "Only a waiting session can be started.", true
	case errors.As(err, &transErr):
		return fmt.Sprintf("A %s session cannot become %s.", transErr.From, transErr.To), true
	case errors.Is(err, sessionService.ErrSessionNotFound):
		return "That session does not exist. It may have been cleaned up.", true
	case errors.Is(err, sessionService.ErrGameNotFound), errors.Is(err, gameService.ErrGameNotFound):
		return "No game by that name. Try `/table games`.", true
	case errors.Is(err, gameService.ErrGameNameTaken):
		return "A game with that name already exists.", true
	case errors.Is(err, sessionService.ErrSessionNotJoinable):
		return "That session is no longer accepting players.", true
	case errors.Is(err, sessionService.ErrSessionFull):
		return "That session is full.", true
	case errors.Is(err, sessionService.ErrAlreadyJoined):
		return "You are already in that session.", true
	case errors.Is(err, sessionService.ErrPlayerNotInSession), errors.Is(err, sessionService.ErrForbidden):
		return "You are not playing in that session.", true
	case errors.Is(err, sessionService.ErrSessionFinished):
		return "That session has already finished.", true
	case errors.Is(err, sessionService.ErrConflict):
		return "Someone else changed that session at the same moment. Please try again.", true
	case errors.Is(err, sessionService.ErrPlayerNotFound), errors.Is(err, playerService.ErrPlayerNotFound):
		return "You are not registered as a player yet.", true
	case errors.Is(err, playerService.ErrInvalidPlayerName):
		return "Your display name is empty.", true
	case errors.Is(err, sessionService.ErrNotYourTurn):
		return "It is not your turn.", true
	case errors.Is(err, errBadOption):
		return strings.TrimPrefix(err.Error(), errBadOption.Error()+": "), true
	}

	return "Something went wrong, please try again later.", false
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	return s[:limit] + "…"
}
