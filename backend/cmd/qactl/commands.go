package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"qatrack/backend/config"
	"qatrack/backend/internal/dto"
	"qatrack/backend/internal/model"
	"qatrack/backend/pkg/clock"
	"qatrack/backend/pkg/database"
	"qatrack/backend/pkg/jwt"
)

const dateLayout = "2006-01-02"

// ── migrate ──

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "数据库迁移",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "应用全部未执行的迁移",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		return database.Migrate(a.db, a.logger, model.All()...)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "回滚迁移（仅 postgres）",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		if steps < 1 {
			return errors.New("--steps 必须大于 0")
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		if a.db.Dialector.Name() != "postgres" {
			return fmt.Errorf("%s 不支持版本化回滚", a.db.Dialector.Name())
		}
		sqlDB, err := a.db.DB()
		if err != nil {
			return err
		}
		return database.RollbackMigrations(sqlDB, steps, a.logger)
	},
}

// ── potential-time ──

var potentialTimeCmd = &cobra.Command{
	Use:   "potential-time <unit-id>",
	Short: "计算设备在区间内的计划可用小时数",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := optionalDateFlag(cmd, "from")
		if err != nil {
			return err
		}
		toPtr, err := optionalDateFlag(cmd, "to")
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		to := clock.Today(clock.NewReal(a.cfg.Schedule.Location()))
		if toPtr != nil {
			to = *toPtr
		}
		hours, err := a.svc.Availability.GetPotentialTime(cmd.Context(), args[0], from, to)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%.2f\n", args[0], to.Format(dateLayout), hours)
		return nil
	},
}

// ── refresh-due-dates ──

var refreshDueDatesCmd = &cobra.Command{
	Use:   "refresh-due-dates",
	Short: "按频率重算自动排程 QA 任务的到期日",
	RunE: func(cmd *cobra.Command, args []string) error {
		unitID, _ := cmd.Flags().GetString("unit")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		result, err := a.svc.DueDate.RefreshDueDates(cmd.Context(), unitID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "已更新 %d 个任务，跳过 %d 个\n", result.Refreshed, result.Skipped)
		return nil
	},
}

// ── import-holidays ──

var importHolidaysCmd = &cobra.Command{
	Use:   "import-holidays",
	Short: "导入 ICS 节假日日历为设备单日调整",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		rawURL, _ := cmd.Flags().GetString("url")
		unitIDs, _ := cmd.Flags().GetStringSlice("unit")
		hours, _ := cmd.Flags().GetFloat64("hours")

		if (file == "") == (rawURL == "") {
			return errors.New("--file 与 --url 必须且只能指定一个")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		var reader io.ReadCloser
		if file != "" {
			reader, err = os.Open(file)
		} else {
			reader, err = a.svc.ICS.Fetch(cmd.Context(), rawURL)
		}
		if err != nil {
			return fmt.Errorf("读取 ICS 失败: %w", err)
		}
		defer reader.Close()

		result, err := a.svc.Schedule.ImportHolidays(cmd.Context(), reader, unitIDs, hours, "qactl")
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "导入 %d 个节假日到 %d 台设备，共 %d 条调整\n", result.Events, result.Units, result.Edits)
		for _, d := range result.Dates {
			fmt.Fprintln(out, "  "+d)
		}
		return nil
	},
}

// ── token ──

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "为服务账号签发 Access Token",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		switch role {
		case "admin", "physicist", "therapist", "service":
		default:
			return fmt.Errorf("未知角色 %q", role)
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		token, err := jwt.NewManager(&cfg.Auth).GenerateAccessToken(user, role, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

// ── update-assignment ──

var updateAssignmentCmd = &cobra.Command{
	Use:   "update-assignment <assignment-id>",
	Short: "修改 QA 任务的名称、频率、自动排程或启用状态",
	Long: `仅修改显式指定的字段。--frequency 可为频率 ID 或 slug，传空字符串清除频率；
频率或自动排程变更时按新配置重算到期日。`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := updateAssignmentRequest(cmd)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		resp, err := a.svc.Assignment.UpdateAssignment(cmd.Context(), args[0], req, "qactl")
		if err != nil {
			return err
		}
		due := "-"
		if resp.DueDate != nil {
			due = *resp.DueDate
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t到期 %s\n", resp.ID, resp.Name, due)
		return nil
	},
}

// updateAssignmentRequest 只收集命令行上显式设置的字段
func updateAssignmentRequest(cmd *cobra.Command) (*dto.UpdateAssignmentRequest, error) {
	req := &dto.UpdateAssignmentRequest{}
	flags := cmd.Flags()
	if flags.Changed("name") {
		v, _ := flags.GetString("name")
		req.Name = &v
	}
	if flags.Changed("frequency") {
		v, _ := flags.GetString("frequency")
		req.Frequency = &v
	}
	if flags.Changed("auto-schedule") {
		v, _ := flags.GetBool("auto-schedule")
		req.AutoSchedule = &v
	}
	if flags.Changed("active") {
		v, _ := flags.GetBool("active")
		req.Active = &v
	}
	if req.Name == nil && req.Frequency == nil && req.AutoSchedule == nil && req.Active == nil {
		return nil, errors.New("至少指定 --name、--frequency、--auto-schedule、--active 之一")
	}
	return req, nil
}

// ── revoke-token ──

var revokeTokenCmd = &cobra.Command{
	Use:   "revoke-token [token]",
	Short: "吊销 Access Token（写入 Redis 黑名单）",
	Long: `传入完整 Token 时从中读取 jti 与过期时间；
只知道 jti 时使用 --jti 与 --ttl（默认 auth.access_token_ttl）。`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jti, _ := cmd.Flags().GetString("jti")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		token := ""
		if len(args) == 1 {
			token = args[0]
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		now := time.Now()
		jti, exp, err := revocationTarget(jwt.NewManager(&a.cfg.Auth), token, jti, ttl, a.cfg.Auth.AccessTokenTTL, now)
		if err != nil {
			return err
		}
		if err := a.svc.Token.Revoke(cmd.Context(), jti, exp, "qactl"); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "已吊销 %s（至 %s）\n", jti, exp.Format(time.RFC3339))
		return nil
	},
}

// revocationTarget 从 Token 或 --jti/--ttl 得到待吊销的 jti 与过期时间
func revocationTarget(mgr *jwt.Manager, token, jti string, ttl, defaultTTL time.Duration, now time.Time) (string, time.Time, error) {
	if (token == "") == (jti == "") {
		return "", time.Time{}, errors.New("Token 参数与 --jti 必须且只能指定一个")
	}
	if token != "" {
		claims, err := mgr.ParseToken(token)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("Token 无效或已过期: %w", err)
		}
		if claims.ID == "" || claims.ExpiresAt == nil {
			return "", time.Time{}, errors.New("Token 缺少 jti 或过期时间")
		}
		return claims.ID, claims.ExpiresAt.Time, nil
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return jti, now.Add(ttl), nil
}

// ── export ──

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "导出设备可用时间与 QA 到期为 Excel",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := optionalDateFlag(cmd, "from")
		if err != nil {
			return err
		}
		to, err := optionalDateFlag(cmd, "to")
		if err != nil {
			return err
		}
		outDir, _ := cmd.Flags().GetString("out")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		buf, filename, err := a.svc.Export.ExportAvailability(cmd.Context(), *from, *to)
		if err != nil {
			return err
		}
		path := filepath.Join(outDir, filename)
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("写入文件失败: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

// optionalDateFlag 解析日期参数；未指定时返回 nil
func optionalDateFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("--%s 格式错误，应为 YYYY-MM-DD", name)
	}
	return &t, nil
}
