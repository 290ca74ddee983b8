// qactl 运维命令行：数据库迁移、可用时间查询、到期日重算、任务维护、节假日导入、服务账号 Token 签发与吊销、报表导出
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "qactl",
	Short:         "QA 排程运维工具",
	Long:          `qactl 直接访问数据库执行 QA 排程的运维操作，配置与 HTTP 服务共用。`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml）")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	migrateDownCmd.Flags().Int("steps", 1, "回滚版本数")

	potentialTimeCmd.Flags().String("from", "", "开始日期 YYYY-MM-DD（默认自验收日起算）")
	potentialTimeCmd.Flags().String("to", "", "结束日期 YYYY-MM-DD（默认今天）")

	refreshDueDatesCmd.Flags().String("unit", "", "仅重算指定设备（默认全部设备）")

	importHolidaysCmd.Flags().String("file", "", "ICS 文件路径")
	importHolidaysCmd.Flags().String("url", "", "ICS 订阅 URL")
	importHolidaysCmd.Flags().StringSlice("unit", nil, "目标设备 ID（可重复或逗号分隔）")
	importHolidaysCmd.Flags().Float64("hours", 0, "节假日当天的可用小时数")
	importHolidaysCmd.MarkFlagRequired("unit")

	tokenCmd.Flags().String("user", "", "服务账号 ID")
	tokenCmd.Flags().String("role", "service", "角色（admin | physicist | therapist | service）")
	tokenCmd.Flags().Duration("ttl", 0, "有效期（默认 auth.access_token_ttl）")
	tokenCmd.MarkFlagRequired("user")

	updateAssignmentCmd.Flags().String("name", "", "任务名称")
	updateAssignmentCmd.Flags().String("frequency", "", "频率 ID 或 slug（空字符串清除频率）")
	updateAssignmentCmd.Flags().Bool("auto-schedule", true, "按频率自动排程")
	updateAssignmentCmd.Flags().Bool("active", true, "启用任务")

	revokeTokenCmd.Flags().String("jti", "", "待吊销的 Token ID")
	revokeTokenCmd.Flags().Duration("ttl", 0, "黑名单保留时长（默认 auth.access_token_ttl）")

	exportCmd.Flags().String("from", "", "开始日期 YYYY-MM-DD")
	exportCmd.Flags().String("to", "", "结束日期 YYYY-MM-DD")
	exportCmd.Flags().StringP("out", "o", "", "输出目录（默认当前目录）")
	exportCmd.MarkFlagRequired("from")
	exportCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(
		migrateCmd,
		potentialTimeCmd,
		refreshDueDatesCmd,
		importHolidaysCmd,
		updateAssignmentCmd,
		tokenCmd,
		revokeTokenCmd,
		exportCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
