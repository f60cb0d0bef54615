package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "interview-coach",
	Short: "Тренажер технических интервью",
	Long: `interview-coach проводит техническое интервью с кандидатом.

Каждый ответ проходит через классификатор, проверку фактов и оценщика.
Интервьюер задает следующий вопрос по их решению, а в конце
нанимающий менеджер составляет итоговый отчет.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env необязателен, переменные могут прийти из окружения
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("ошибка загрузки .env файла: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "путь к конфигурации интервью (по умолчанию INTERVIEW_CONFIG)")
	rootCmd.AddCommand(telegramCmd)
	rootCmd.AddCommand(chatCmd)
}
