package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"dom-study/backend/internal/dto"
	"dom-study/backend/internal/service"
	"dom-study/backend/pkg/database"
)

// ── migrate ──

func newMigrateCmd(configPath *string) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移",
		Long:  "执行全部未应用的迁移；--down 回滚最近一次迁移。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			sqlDB, err := a.db.DB()
			if err != nil {
				return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
			}
			if down {
				if err := database.RollbackMigration(sqlDB, a.logger); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "已回滚最近一次迁移")
				return nil
			}
			if err := database.RunMigrations(sqlDB, a.logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "迁移完成")
			return nil
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "回滚最近一次迁移")
	return cmd
}

// ── redistribute ──

func newRedistributeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "redistribute <plan-id>",
		Short: "对计划执行一次重新分配",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			resp, err := a.svc.Scheduling.RedistributeSystem(cmd.Context(), args[0], "cli")
			if resp != nil {
				printRedistribution(cmd.OutOrStdout(), resp)
			}
			return err
		},
	}
}

// ── import ──

func newImportCmd(configPath *string) *cobra.Command {
	var policy string

	cmd := &cobra.Command{
		Use:   "import <plan-id> <file.xlsx>",
		Short: "从 Excel 批量导入目标",
		Long:  "以计划所有者身份导入 Excel 中的目标，导入后对计划执行重新分配。",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if policy != "" && policy != service.DuplicatePolicySkip && policy != service.DuplicatePolicyReject {
				return service.ErrImportPolicy
			}

			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("打开文件失败: %w", err)
			}
			defer f.Close()

			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			rows, err := a.svc.Import.ParseImportFile(f)
			if err != nil {
				return err
			}

			plan, err := a.repo.StudyPlan.GetByID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%w: %s", service.ErrPlanNotFound, args[0])
			}

			resp, err := a.svc.Import.Import(cmd.Context(), plan.PlanID, rows, policy, plan.UserID)
			if resp != nil {
				printImport(cmd.OutOrStdout(), resp)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&policy, "policy", "", "重复行处理策略：skip | reject（默认取配置）")
	return cmd
}

// ── 输出 ──

func printRedistribution(out io.Writer, r *dto.RedistributionResponse) {
	fmt.Fprintf(out, "计划 %s：放置 %d 个目标，调整 %d 个，涉及 %d 天\n", r.PlanID, r.GoalsPlaced, r.GoalsUpdated, r.DaysTouched)
	if r.FirstDate != nil && r.LastDate != nil {
		fmt.Fprintf(out, "日期范围：%s 至 %s\n", *r.FirstDate, *r.LastDate)
	}
	if r.BeyondEndDate > 0 {
		fmt.Fprintf(out, "警告：%d 个目标超出计划结束日期\n", r.BeyondEndDate)
	}
	for _, c := range r.Changes {
		fmt.Fprintf(out, "  %s  %s/%d -> %s/%d\n", c.DisplayNumber, c.FromDate, c.FromOrder, c.Date, c.Order)
	}
}

func printImport(out io.Writer, r *dto.ImportGoalsResponse) {
	fmt.Fprintf(out, "共 %d 行：导入 %d，跳过 %d，失败 %d\n", r.Total, r.Imported, r.Skipped, r.Failed)
	for _, e := range r.Errors {
		fmt.Fprintf(out, "  错误 第 %d 行 %s: %s\n", e.Row, e.Field, e.Reason)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(out, "  提示 第 %d 行 %s: %s\n", w.Row, w.Field, w.Reason)
	}
	if r.Redistribution != nil {
		printRedistribution(out, r.Redistribution)
	}
}
