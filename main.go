package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"rag-chat-client/api"
	"rag-chat-client/apperr"
	"rag-chat-client/attach"
	"rag-chat-client/auth"
	"rag-chat-client/chat"
	"rag-chat-client/db"
	"rag-chat-client/forms"
	"rag-chat-client/utils"
)

var (
	version = "0.1.0"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("RAG Chat Client v%s\n", version)
		os.Exit(0)
	}

	config, err := utils.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(config.Log.Level, config.Log.Path)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info().Str("version", version).Msg("starting RAG chat client")

	database, err := db.New(config.Data.DBPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize database")
		os.Exit(1)
	}
	defer database.Close()

	tokens := auth.NewTokenStore(database, logger)
	tokens.Initialize()

	client := api.New(config.Backend.BaseURL, tokens.Token, logger)

	packager := attach.NewPackager(logger)
	packager.SetLimits(config.Attachments.MaxFileSizeBytes, config.Attachments.MaxImagePixels, config.Attachments.ImageQuality)

	app := &cli{
		config:   config,
		log:      logger,
		database: database,
		tokens:   tokens,
		client:   client,
		packager: packager,
	}
	app.run()
}

// cli is the interactive shell around one conversation session.
type cli struct {
	config   *utils.Config
	log      zerolog.Logger
	database *db.DB
	tokens   *auth.TokenStore
	client   *api.Client
	packager *attach.Packager

	session     *chat.Session
	engineID    string
	attachments []*attach.Attachment
}

func (c *cli) run() {
	fmt.Println("RAG chat client. Type /help for commands, or a prompt to query.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if !c.command(line) {
				return
			}
			continue
		}

		c.submit(line)
	}
}

// command dispatches one slash command; it returns false to quit.
func (c *cli) command(line string) bool {
	parts := strings.SplitN(line, " ", 2)
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch parts[0] {
	case "/quit", "/exit":
		if c.session != nil {
			c.session.Detach()
		}
		return false

	case "/help":
		fmt.Println(`Commands:
  /engines              list query engines
  /engine <id>          select a query engine
  /new-engine           create a query engine
  /attach <path>        attach a file to the next submission
  /attachments          list pending attachments
  /clear                discard pending attachments
  /search <query>       full-text search over message history
  /stats                local storage statistics
  /token <value>        set the bearer token
  /refresh-token <value> set the refresh token
  /quit                 exit`)

	case "/engines":
		engines, err := c.client.ListEngines(context.Background())
		if err != nil {
			c.printError(err)
			return true
		}
		for _, e := range engines {
			fmt.Printf("  %s  %s: %s\n", e.ID, e.Name, e.Description)
		}

	case "/engine":
		if arg == "" {
			fmt.Println("usage: /engine <id>")
			return true
		}
		c.engineID = arg
		fmt.Printf("query engine set to %s\n", arg)

	case "/new-engine":
		c.createEngine()

	case "/attach":
		if arg == "" {
			fmt.Println("usage: /attach <path>")
			return true
		}
		c.attachments = append(c.attachments, attach.NewAttachment(arg))
		fmt.Printf("attached %s (%d pending)\n", arg, len(c.attachments))

	case "/attachments":
		for _, a := range c.attachments {
			fmt.Printf("  %s\n", a.Name)
		}

	case "/clear":
		c.attachments = nil
		fmt.Println("attachments cleared")

	case "/search":
		if arg == "" {
			fmt.Println("usage: /search <query>")
			return true
		}
		results, err := c.database.SearchMessages(arg, 10)
		if err != nil {
			c.printError(err)
			return true
		}
		for _, r := range results {
			fmt.Printf("  [conversation %d] %s\n", r.ConversationID, r.Snippet)
		}

	case "/stats":
		stats, err := c.database.GetStats()
		if err != nil {
			c.printError(err)
			return true
		}
		fmt.Printf("  conversations: %d, messages: %d, db size: %d bytes\n",
			stats.ConversationCount, stats.MessageCount, stats.DBSizeBytes)

	case "/token":
		if err := c.tokens.SetToken(arg); err != nil {
			c.printError(err)
			return true
		}
		if exp, ok := c.tokens.ExpiresAt(); ok {
			fmt.Printf("token set (expires %s)\n", exp.Format("2006-01-02 15:04:05"))
		} else {
			fmt.Println("token set")
		}

	case "/refresh-token":
		if err := c.tokens.SetRefreshToken(arg); err != nil {
			c.printError(err)
		}

	default:
		fmt.Printf("unknown command %s\n", parts[0])
	}

	return true
}

// submit runs one exchange and blocks until the stream settles, printing
// tokens as they arrive.
func (c *cli) submit(prompt string) {
	if c.engineID == "" {
		fmt.Println("select a query engine first: /engines then /engine <id>")
		return
	}

	if c.session == nil {
		conv, err := c.database.CreateConversation("New Chat", c.engineID)
		if err != nil {
			c.printError(err)
			return
		}
		c.session = chat.NewSession(chat.NewConversation(conv.ID), c.client, c.database, c.packager, c.log)
	}

	c.session.OnChunk = func(content string) {
		fmt.Print(content)
	}
	c.session.OnDone = func(chat.Message) {
		fmt.Println()
	}
	c.session.OnFailure = func(err error) {
		fmt.Println()
		c.printError(err)
	}

	err := c.session.Submit(context.Background(), chat.SubmitInput{
		Prompt:      prompt,
		EngineID:    c.engineID,
		Attachments: c.attachments,
	})
	if err != nil {
		c.printError(err)
		return
	}

	// Attachments are owned by the submission; discard once accepted.
	c.attachments = nil
	c.session.Wait()
}

// createEngine walks the query engine form, validates the draft and sends
// it to the registry.
func (c *cli) createEngine() {
	scanner := bufio.NewScanner(os.Stdin)
	variables := forms.DeriveRequired(forms.QueryEngineVariables(), forms.Context{
		AttachmentCount: len(c.attachments),
	})

	values := forms.BuildInitialValues(variables)
	for _, v := range variables {
		if v.ServerManaged || v.Type == forms.TypeInt || v.Type == forms.TypeFloat || v.Type == forms.TypeBool {
			continue
		}
		fmt.Printf("%s: ", v.Label)
		if !scanner.Scan() {
			return
		}
		values[v.Name] = strings.TrimSpace(scanner.Text())
	}

	schema, err := forms.BuildValidation(variables, nil)
	if err != nil {
		c.printError(err)
		return
	}
	result, err := schema.Validate(values)
	if err != nil {
		c.printError(err)
		return
	}
	if !result.Valid() {
		first := result.First()
		fmt.Printf("invalid %s: %s (%d errors)\n", first.Field, first.Message, result.ErrorCount())
		return
	}

	draft := forms.StripServerManaged(values)
	if len(c.attachments) > 0 {
		documents, err := c.packager.Package(c.attachments)
		if err != nil {
			c.printError(err)
			return
		}
		draft["documents"] = documents
		c.attachments = nil
	}

	engine, err := c.client.CreateEngine(context.Background(), draft)
	if err != nil {
		c.printError(err)
		return
	}

	c.engineID = engine.ID
	fmt.Printf("created query engine %s (%s)\n", engine.Name, engine.ID)
}

// printError renders a tagged error with a hint matched to its kind.
func (c *cli) printError(err error) {
	switch apperr.KindOf(err) {
	case apperr.KindAuth:
		fmt.Printf("authentication failed: %v (set a fresh token with /token)\n", err)
	case apperr.KindValidation:
		fmt.Printf("invalid input: %v\n", err)
	case apperr.KindEncoding:
		fmt.Printf("attachment error: %v (reselect files and retry)\n", err)
	default:
		fmt.Printf("error: %v\n", err)
	}
}
