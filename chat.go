package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"interview-coach/internal/interview"
	"interview-coach/internal/session"
)

var (
	chatMock     bool
	chatThoughts bool
	chatName     string
	chatRole     string
	chatGrade    string
)

// chatCmd проводит интервью в терминале
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Провести интервью в терминале",
	Long: `Проводит интервью через stdin/stdout.

Напишите "стоп", чтобы завершить интервью и получить отчет.

Examples:
  # Интервью с моком модели и выводом рассуждений агентов
  interview-coach chat --mock --thoughts --name Алекс --role backend --grade Junior`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatMock, "mock", false, "использовать мок вместо внешнего API")
	chatCmd.Flags().BoolVar(&chatThoughts, "thoughts", false, "печатать внутренние рассуждения агентов")
	chatCmd.Flags().StringVar(&chatName, "name", "", "имя кандидата")
	chatCmd.Flags().StringVar(&chatRole, "role", "", "позиция")
	chatCmd.Flags().StringVar(&chatGrade, "grade", "", "грейд")
}

func runChat(cmd *cobra.Command, _ []string) error {
	a, err := newApplication(chatMock)
	if err != nil {
		return err
	}
	defer a.Close()

	in := bufio.NewScanner(cmd.InOrStdin())
	in.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	out := cmd.OutOrStdout()

	profile := interview.CandidateProfile{Name: chatName, Role: chatRole, Grade: chatGrade}
	if profile.Name == "" {
		if profile.Name, err = ask(in, out, "Как вас зовут? "); err != nil {
			return err
		}
	}
	if profile.Role == "" {
		prompt := fmt.Sprintf("Позиция (%s): ", strings.Join(a.bank.RoleNames(), ", "))
		if profile.Role, err = ask(in, out, prompt); err != nil {
			return err
		}
	}
	if profile.Grade == "" {
		if profile.Grade, err = ask(in, out, "Грейд (Junior/Middle/Senior): "); err != nil {
			return err
		}
	}

	s, err := a.registry.Start(profile)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Интервью %s началось. Поздоровайтесь, чтобы получить первый вопрос.\n", s.ID())

	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			break
		}
		text := strings.TrimSpace(in.Text())
		if text == "" {
			continue
		}

		res, err := s.ProcessTurn(cmd.Context(), text)
		if err != nil {
			if errors.Is(err, session.ErrEmptyMessage) {
				continue
			}
			return err
		}
		if chatThoughts {
			for _, th := range res.Trace {
				fmt.Fprintf(out, "  [%s] %s\n", th.Step, th.Content)
			}
		}
		fmt.Fprintf(out, "\n%s\n\n", res.Reply)
		if res.Report != nil {
			fmt.Fprintln(out, res.Report.Markdown())
			return nil
		}
	}
	if err := in.Err(); err != nil {
		return fmt.Errorf("ошибка чтения ввода: %w", err)
	}

	// ввод закончился до завершения интервью
	res, err := s.ProcessTurn(cmd.Context(), "стоп")
	if err != nil {
		return err
	}
	if res.Report != nil {
		fmt.Fprintln(out, res.Report.Markdown())
	}
	return nil
}

func ask(in *bufio.Scanner, out io.Writer, prompt string) (string, error) {
	for {
		fmt.Fprint(out, prompt)
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return "", fmt.Errorf("ошибка чтения ввода: %w", err)
			}
			return "", io.ErrUnexpectedEOF
		}
		if v := strings.TrimSpace(in.Text()); v != "" {
			return v, nil
		}
	}
}
