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

import "github.com/tomoncle/unitwork/database"

// Register records the bundled entity tables with the database entity
// registry. It is safe to call more than once.
func Register() {
	database.RegisteredModel(database.NewModelAdapter((*User)(nil), 10))
	database.RegisteredModel(database.NewModelAdapter((*Student)(nil), 20))
}
