package storage

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/semmidev/dbwarden/internal/config"
)

// maxTelegramFile is the largest document the Bot API accepts.
const maxTelegramFile = 50 << 20

// TelegramStorage posts artifacts, or a notice about them, to a chat. It
// cannot list or delete, so retention leaves it alone.
type TelegramStorage struct {
	bot      *tgbotapi.BotAPI
	chatID   int64
	sendFile bool
}

func NewTelegram(cfg *config.UploadTarget) (*TelegramStorage, error) {
	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", cfg.ChatID, err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramStorage{
		bot:      bot,
		chatID:   chatID,
		sendFile: cfg.SendFile,
	}, nil
}

func (t *TelegramStorage) Upload(ctx context.Context, localPath string, remoteName string) error {
	fileInfo, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	size := humanize.IBytes(uint64(fileInfo.Size()))

	if !t.sendFile || fileInfo.Size() > maxTelegramFile {
		message := fmt.Sprintf(
			"✅ Backup Created\n\n"+
				"📁 File: %s\n"+
				"📊 Size: %s\n"+
				"🕐 Time: %s",
			remoteName,
			size,
			fileInfo.ModTime().Format("2006-01-02 15:04:05"),
		)
		return t.SendNotification(message)
	}

	file := tgbotapi.NewDocument(t.chatID, tgbotapi.FilePath(localPath))
	file.Caption = fmt.Sprintf("📦 Backup: %s (%s)", remoteName, size)

	if _, err := t.bot.Send(file); err != nil {
		return fmt.Errorf("failed to send telegram file: %w", err)
	}

	return nil
}

func (t *TelegramStorage) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (t *TelegramStorage) Delete(ctx context.Context, remoteName string) error {
	return nil
}

func (t *TelegramStorage) SendNotification(message string) error {
	msg := tgbotapi.NewMessage(t.chatID, message)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}
