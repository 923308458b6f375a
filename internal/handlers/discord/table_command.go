package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KirkDiggler/tabletop/internal/common/logging"
	"github.com/KirkDiggler/tabletop/internal/models"
	gameService "github.com/KirkDiggler/tabletop/internal/services/game"
	playerService "github.com/KirkDiggler/tabletop/internal/services/player"
	sessionService "github.com/KirkDiggler/tabletop/internal/services/session"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const interactionTimeout = 10 * time.Second

var errBadOption = errors.New("bad option")

// TableCommandConfig holds the services behind /table
type TableCommandConfig struct {
	SessionService sessionService.Service
	GameService    gameService.Service
	PlayerService  playerService.Service
	Logger         *zap.Logger
}

// TableCommand handles the /table command and the buttons on session messages
type TableCommand struct {
	BaseCommand
	sessionService sessionService.Service
	gameService    gameService.Service
	playerService  playerService.Service
	logger         *zap.Logger
}

// tableRequest is a parsed interaction, independent of how it arrived
type tableRequest struct {
	Subcommand string
	UserID     string
	UserName   string
	Strings    map[string]string
	Ints       map[string]int64
}

func (r *tableRequest) str(name string) (string, error) {
	v, ok := r.Strings[name]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s is required", errBadOption, name)
	}

	return v, nil
}

func (r *tableRequest) optionalInt(name string) *int {
	v, ok := r.Ints[name]
	if !ok {
		return nil
	}

	n := int(v)
	return &n
}

// NewTableCommand creates a new table command handler
func NewTableCommand(cfg *TableCommandConfig) (*TableCommand, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.SessionService == nil {
		return nil, errors.New("session service cannot be nil")
	}

	if cfg.GameService == nil {
		return nil, errors.New("game service cannot be nil")
	}

	if cfg.PlayerService == nil {
		return nil, errors.New("player service cannot be nil")
	}

	sessionOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "session",
		Description: "Session ID",
		Required:    true,
	}

	return &TableCommand{
		BaseCommand: BaseCommand{
			Name:        "table",
			Description: "Turn-based game sessions",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "games",
					Description: "List the games that can be played",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "newgame",
					Description: "Define a new game",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Game name", Required: true},
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "min", Description: "Fewest players", Required: true},
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "max", Description: "Most players", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "schema", Description: "JSON Schema for the game state"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "create",
					Description: "Open a new session of a game",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "game", Description: "Game name", Required: true},
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "min", Description: "Override the fewest players"},
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "max", Description: "Override the most players"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "join",
					Description: "Join a waiting session",
					Options:     []*discordgo.ApplicationCommandOption{sessionOption},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "leave",
					Description: "Leave a session",
					Options:     []*discordgo.ApplicationCommandOption{sessionOption},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "start",
					Description: "Start a waiting session",
					Options:     []*discordgo.ApplicationCommandOption{sessionOption},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "move",
					Description: "Replace the game state and pass the turn",
					Options: []*discordgo.ApplicationCommandOption{
						sessionOption,
						{Type: discordgo.ApplicationCommandOptionString, Name: "state", Description: "New state as JSON", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "pass",
					Description: "Pass your turn",
					Options:     []*discordgo.ApplicationCommandOption{sessionOption},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "finish",
					Description: "Finish an active session",
					Options:     []*discordgo.ApplicationCommandOption{sessionOption},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "show",
					Description: "Show a session",
					Options:     []*discordgo.ApplicationCommandOption{sessionOption},
				},
			},
		},
		sessionService: cfg.SessionService,
		gameService:    cfg.GameService,
		playerService:  cfg.PlayerService,
		logger:         logging.OrNop(cfg.Logger),
	}, nil
}

// Handle processes a /table slash command
func (c *TableCommand) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	data := i.ApplicationCommandData()
	if data.Name != c.Name || len(data.Options) == 0 {
		return nil
	}

	sub := data.Options[0]
	req := &tableRequest{
		Subcommand: sub.Name,
		Strings:    map[string]string{},
		Ints:       map[string]int64{},
	}
	req.UserID, req.UserName = interactionUser(i)

	for _, opt := range sub.Options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionString:
			req.Strings[opt.Name] = opt.StringValue()
		case discordgo.ApplicationCommandOptionInteger:
			req.Ints[opt.Name] = opt.IntValue()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	resp, err := c.Execute(ctx, req)
	if err != nil {
		return RespondWithError(s, i, c.userMessage(req, err))
	}

	return Respond(s, i, resp)
}

// HandleComponent processes the buttons rendered under a session
func (c *TableCommand) HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	action, sessionID, ok := parseButtonID(i.MessageComponentData().CustomID)
	if !ok {
		return RespondWithError(s, i, "Unknown button.")
	}

	req := &tableRequest{
		Subcommand: action,
		Strings:    map[string]string{"session": sessionID},
	}
	req.UserID, req.UserName = interactionUser(i)

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	resp, err := c.Execute(ctx, req)
	if err != nil {
		return RespondWithError(s, i, c.userMessage(req, err))
	}

	return RespondUpdate(s, i, resp)
}

func (c *TableCommand) userMessage(req *tableRequest, err error) string {
	msg, expected := friendlyError(err)
	if !expected {
		c.logger.Error("table command failed",
			zap.String("subcommand", req.Subcommand),
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
	}

	return msg
}

// Execute runs one request against the services and builds the reply
func (c *TableCommand) Execute(ctx context.Context, req *tableRequest) (*discordgo.InteractionResponseData, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: could not tell who you are", errBadOption)
	}

	registered, err := c.playerService.RegisterPlayer(ctx, &playerService.RegisterPlayerInput{
		UserID: req.UserID,
		Name:   req.UserName,
	})
	if err != nil {
		return nil, err
	}
	playerID := registered.Player.ID

	switch req.Subcommand {
	case "games":
		return c.handleGames(ctx)
	case "newgame":
		return c.handleNewGame(ctx, req)
	case "create":
		return c.handleCreate(ctx, req, playerID)
	case "show":
		return c.handleShow(ctx, req)
	}

	sessionID, err := req.str("session")
	if err != nil {
		return nil, err
	}

	var session *models.Session
	var notice string

	switch req.Subcommand {
	case actionJoin:
		out, err := c.sessionService.JoinSession(ctx, &sessionService.JoinSessionInput{
			SessionID: sessionID,
			PlayerID:  playerID,
		})
		if err != nil {
			return nil, err
		}
		session, notice = out.Session, fmt.Sprintf("%s joined.", registered.Player.Name)

	case actionLeave:
		out, err := c.sessionService.LeaveSession(ctx, &sessionService.LeaveSessionInput{
			SessionID: sessionID,
			PlayerID:  playerID,
		})
		if err != nil {
			return nil, err
		}
		session, notice = out.Session, fmt.Sprintf("%s left.", registered.Player.Name)
		if out.Reset {
			notice += " The table is empty and waiting for players again."
		}

	case actionStart:
		out, err := c.sessionService.StartSession(ctx, &sessionService.StartSessionInput{
			SessionID:          sessionID,
			RequestingPlayerID: playerID,
		})
		if err != nil {
			return nil, err
		}
		session, notice = out.Session, "The game is on!"

	case "move":
		state, err := req.str("state")
		if err != nil {
			return nil, err
		}
		if !json.Valid([]byte(state)) {
			return nil, fmt.Errorf("%w: state must be valid JSON", errBadOption)
		}
		out, err := c.sessionService.UpdateSessionState(ctx, &sessionService.UpdateSessionStateInput{
			SessionID:          sessionID,
			RequestingPlayerID: playerID,
			State:              json.RawMessage(state),
		})
		if err != nil {
			return nil, err
		}
		session, notice = out.Session, fmt.Sprintf("%s made a move.", registered.Player.Name)

	case actionPass:
		out, err := c.sessionService.AdvanceTurn(ctx, &sessionService.AdvanceTurnInput{
			SessionID:      sessionID,
			ActingPlayerID: playerID,
		})
		if err != nil {
			return nil, err
		}
		session, notice = out.Session, fmt.Sprintf("%s passed.", registered.Player.Name)
		if !out.Advanced {
			notice = "Only an active session has turns to pass."
		}

	case "finish":
		out, err := c.sessionService.FinishSession(ctx, &sessionService.FinishSessionInput{
			SessionID:      sessionID,
			ActingPlayerID: playerID,
		})
		if err != nil {
			return nil, err
		}
		session, notice = out.Session, "Game over."
		if !out.Finished {
			notice = "Only an active session can be finished."
		}

	default:
		return nil, fmt.Errorf("%w: unknown subcommand %q", errBadOption, req.Subcommand)
	}

	return c.renderSessionView(ctx, session, notice)
}

func (c *TableCommand) handleGames(ctx context.Context) (*discordgo.InteractionResponseData, error) {
	out, err := c.gameService.ListGames(ctx, &gameService.ListGamesInput{})
	if err != nil {
		return nil, err
	}

	return renderGameList(out.Games), nil
}

func (c *TableCommand) handleNewGame(ctx context.Context, req *tableRequest) (*discordgo.InteractionResponseData, error) {
	name, err := req.str("name")
	if err != nil {
		return nil, err
	}

	input := &gameService.CreateGameInput{
		Name:       name,
		MinPlayers: int(req.Ints["min"]),
		MaxPlayers: int(req.Ints["max"]),
	}
	if doc, ok := req.Strings["schema"]; ok && doc != "" {
		input.StateSchema = json.RawMessage(doc)
	}

	out, err := c.gameService.CreateGame(ctx, input)
	if err != nil {
		return nil, err
	}

	return renderGame(out.Game, fmt.Sprintf("Added **%s**.", out.Game.Name)), nil
}

func (c *TableCommand) handleCreate(ctx context.Context, req *tableRequest, playerID string) (*discordgo.InteractionResponseData, error) {
	name, err := req.str("game")
	if err != nil {
		return nil, err
	}

	game, err := c.gameService.GetGameByName(ctx, &gameService.GetGameByNameInput{Name: name})
	if err != nil {
		return nil, err
	}

	created, err := c.sessionService.CreateSession(ctx, &sessionService.CreateSessionInput{
		GameID:     game.Game.ID,
		CreatorID:  playerID,
		MinPlayers: req.optionalInt("min"),
		MaxPlayers: req.optionalInt("max"),
	})
	if err != nil {
		return nil, err
	}

	// the creator sits down at their own table
	joined, err := c.sessionService.JoinSession(ctx, &sessionService.JoinSessionInput{
		SessionID: created.Session.ID,
		PlayerID:  playerID,
	})
	if err != nil {
		return nil, err
	}

	return c.renderSessionView(ctx, joined.Session, fmt.Sprintf("New %s table. Press Join to sit down.", game.Game.Name))
}

func (c *TableCommand) handleShow(ctx context.Context, req *tableRequest) (*discordgo.InteractionResponseData, error) {
	sessionID, err := req.str("session")
	if err != nil {
		return nil, err
	}

	out, err := c.sessionService.GetSession(ctx, &sessionService.GetSessionInput{SessionID: sessionID})
	if err != nil {
		return nil, err
	}

	return c.renderSessionView(ctx, out.Session, "")
}

// renderSessionView loads the game and player names. Lookup failures degrade to ids.
func (c *TableCommand) renderSessionView(ctx context.Context, session *models.Session, notice string) (*discordgo.InteractionResponseData, error) {
	view := &sessionView{
		Session: session,
		Notice:  notice,
	}

	game, err := c.gameService.GetGame(ctx, &gameService.GetGameInput{GameID: session.GameID})
	if err != nil {
		c.logger.Warn("failed to load game for session view",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	} else {
		view.Game = game.Game
	}

	players, err := c.playerService.GetPlayers(ctx, &playerService.GetPlayersInput{PlayerIDs: session.PlayerIDs})
	if err != nil {
		c.logger.Warn("failed to load players for session view",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	} else {
		view.Players = players.Players
	}

	return renderSession(view), nil
}
