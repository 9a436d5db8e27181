package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/session"
	tdclient "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth/qrlogin"
	"github.com/gotd/td/tg"
	"github.com/mdp/qrterminal/v3"
	"gorm.io/gorm"

	"github.com/ikramov/sitebot/internal/config"
	"github.com/ikramov/sitebot/internal/telegram"
)

func main() {
	fmt.Println("=== telegram auth tool ===")
	fmt.Println("this tool creates the user session used for account introspection")
	fmt.Println()

	cfg := config.Load()
	if cfg.APIID == 0 || cfg.APIHash == "" {
		fmt.Println("error: TELEGRAM_API_ID and TELEGRAM_API_HASH must be set")
		fmt.Println("get them from https://my.telegram.org")
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("choose authentication method:")
	fmt.Println("  1. phone number (sms/code)")
	fmt.Println("  2. qr code (scan with the telegram app)")
	fmt.Print("\nenter choice [1]: ")

	choice, _ := reader.ReadString('\n')
	choice = strings.TrimSpace(choice)

	var err error
	if choice == "2" {
		err = authWithQR(cfg)
	} else {
		err = authWithPhone(cfg, reader)
	}

	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✓ authentication successful!")
	fmt.Printf("session stored at: %s\n", telegram.SessionPath(cfg))
	fmt.Println("\n⚠️  keep this file secret! it provides full access to your telegram account")
}

// authWithPhone runs the interactive sms/code flow.
func authWithPhone(cfg *config.Config, reader *bufio.Reader) error {
	phone := cfg.PhoneNumber
	if phone == "" {
		fmt.Print("enter your phone number (with country code, e.g. +998901234567): ")
		phone, _ = reader.ReadString('\n')
		phone = strings.TrimSpace(phone)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	fmt.Println("\nauthenticating... (check telegram for code)")

	client, err := gotgproto.NewClient(
		cfg.APIID,
		cfg.APIHash,
		gotgproto.ClientTypePhone(phone),
		&gotgproto.ClientOpts{
			Session:          sessionMaker.SqlSession(sqlite.Open(telegram.SessionPath(cfg))),
			DisableCopyright: true,
		},
	)
	if err != nil {
		return err
	}
	defer client.Stop()

	if client.Self != nil {
		fmt.Printf("logged in as: %s\n", client.Self.FirstName)
	}
	return nil
}

// authWithQR runs the QR login flow and stores the captured session in the
// same sqlite database the phone flow uses.
func authWithQR(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	memStorage := &session.StorageMemory{}
	dispatcher := tg.NewUpdateDispatcher()

	client := tdclient.NewClient(cfg.APIID, cfg.APIHash, tdclient.Options{
		SessionStorage: memStorage,
		UpdateHandler:  &dispatcher,
	})

	var sessionData *session.Data

	err := client.Run(ctx, func(ctx context.Context) error {
		qr := client.QR()
		loggedIn := qrlogin.OnLoginToken(&dispatcher)

		_, err := qr.Auth(ctx, loggedIn, func(_ context.Context, token qrlogin.Token) error {
			fmt.Println("\nscan this code with telegram (settings -> devices -> link desktop device):")
			fmt.Println()
			qrterminal.GenerateHalfBlock(token.URL(), qrterminal.L, os.Stdout)
			return nil
		})
		if err != nil {
			return err
		}

		loader := session.Loader{Storage: memStorage}
		sessionData, err = loader.Load(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("qr auth failed: %w", err)
	}
	if sessionData == nil {
		return fmt.Errorf("no session data captured after login")
	}

	return saveSession(cfg, sessionData)
}

// saveSession converts the captured session into the sqlite storage format
// and upserts it into the session database.
func saveSession(cfg *config.Config, data *session.Data) error {
	sess, err := telegram.ConvertSession(data)
	if err != nil {
		return fmt.Errorf("failed to convert session: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(telegram.SessionPath(cfg)), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to open session database: %w", err)
	}

	if err := db.AutoMigrate(sess); err != nil {
		return fmt.Errorf("failed to migrate session table: %w", err)
	}
	return db.Save(sess).Error
}
