package api

import (
	"time"

	"github.com/warp/payroll-sync/hr"
	"github.com/warp/payroll-sync/reconcile"
)

// Demo data served when fallback is enabled and a store read fails, so the
// dashboard stays usable without its databases.

func fallbackEmployees() []EmployeeListItemDTO {
	return []EmployeeListItemDTO{
		{EmployeeID: 1, FullName: "Nguyễn Văn An", DepartmentName: "IT Department", PositionName: "Senior Developer", Status: hr.StatusActive, SyncStatus: reconcile.StatusSynced, HireDate: "2023-01-15"},
		{EmployeeID: 2, FullName: "Trần Thị Bình", DepartmentName: "HR Department", PositionName: "HR Manager", Status: hr.StatusActive, SyncStatus: reconcile.StatusSynced, HireDate: "2023-03-10"},
		{EmployeeID: 3, FullName: "Lê Văn Cường", DepartmentName: "IT Department", PositionName: "Junior Developer", Status: hr.StatusActive, SyncStatus: reconcile.StatusNeedsSync, HireDate: "2024-01-05"},
		{EmployeeID: 4, FullName: "Phạm Thị Dung", DepartmentName: "Accounting", PositionName: "Accountant", Status: hr.StatusActive, SyncStatus: reconcile.StatusSynced, HireDate: "2023-06-20"},
		{EmployeeID: 5, FullName: "Hoàng Văn Em", DepartmentName: "IT Department", PositionName: "DevOps Engineer", Status: hr.StatusActive, SyncStatus: reconcile.StatusNeedsSync, HireDate: "2024-02-01"},
	}
}

func fallbackDepartments() []DepartmentDTO {
	return []DepartmentDTO{
		{DepartmentID: 1, DepartmentName: "IT Department", EmployeeCount: 3},
		{DepartmentID: 2, DepartmentName: "HR Department", EmployeeCount: 1},
		{DepartmentID: 3, DepartmentName: "Accounting", EmployeeCount: 1},
	}
}

func fallbackDetection(now time.Time) reconcile.DetectionReport {
	return reconcile.DetectionReport{
		Total:         5,
		NeedSync:      2,
		AlreadySynced: 3,
		Actions: []reconcile.Action{
			{EmployeeID: 3, FullName: "Lê Văn Cường", Kind: reconcile.ActionInsert, Reason: reconcile.ReasonMissing},
			{EmployeeID: 5, FullName: "Hoàng Văn Em", Kind: reconcile.ActionUpdate, Reason: "DepartmentID: 7 -> 1"},
		},
		CheckedAt: now.UTC(),
	}
}
