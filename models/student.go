/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"time"

	"github.com/tomoncle/unitwork/types"
	"github.com/uptrace/bun"
)

type StudentStatus int

const (
	StudentEnrolled StudentStatus = iota + 1
	StudentSuspended
	StudentGraduated
)

// StudentStatuses is the member table of StudentStatus.
var StudentStatuses = types.NewEnumSet(
	types.EnumMember[StudentStatus]{Value: StudentEnrolled, Name: "enrolled", Display: "Enrolled", Desc: "Currently attending"},
	types.EnumMember[StudentStatus]{Value: StudentSuspended, Name: "suspended", Display: "Suspended"},
	types.EnumMember[StudentStatus]{Value: StudentGraduated, Name: "graduated", Display: "Graduated", Desc: "Finished all courses"},
)

var _ types.BaseEnum = StudentStatus(0)

func (s StudentStatus) IsValid() bool  { return StudentStatuses.IsValid(s) }
func (s StudentStatus) Number() int    { return int(s) }
func (s StudentStatus) Name() string   { return StudentStatuses.Name(s) }
func (s StudentStatus) Desc() string   { return StudentStatuses.Desc(s) }
func (s StudentStatus) String() string { return StudentStatuses.DisplayName(s) }

// Student is stored in the "student" table.
type Student struct {
	bun.BaseModel `bun:"table:student,alias:s"`
	Entity

	Name       string               `bun:"name,notnull" json:"name"`
	Email      string               `bun:"email" json:"email"`
	Age        int                  `bun:"age" json:"age"`
	Status     StudentStatus        `bun:"status,notnull" json:"status"`
	Tags       types.JSON[[]string] `bun:"tags,type:text" json:"tags"`
	EnrolledAt time.Time            `bun:"enrolled_at,nullzero" json:"enrolled_at"`
}

// EnrolledOn is the enrollment date as dd-mm-yyyy, or "" when unset.
func (s *Student) EnrolledOn() string {
	return types.FormatDate(&s.EnrolledAt)
}
