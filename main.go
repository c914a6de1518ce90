// elHLA: HLA class I typing from sequencing reads.
// Copyright (c) 2021 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

// elHLA types HLA class I genes from sequencing reads by phasing
// heterozygous amino-acid positions into evidence and resolving an
// allele catalog against it.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/exascience/elhla/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: type, count, inflate-catalog, deflate-catalog")
	fmt.Fprint(os.Stderr, cmd.TypeHelp)
	fmt.Fprint(os.Stderr, cmd.CountHelp)
	fmt.Fprint(os.Stderr, cmd.InflateCatalogHelp)
	fmt.Fprint(os.Stderr, cmd.DeflateCatalogHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		fmt.Fprintln(os.Stderr, cmd.HelpMessage)
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "type":
		err = cmd.Type()
	case "count":
		err = cmd.Count()
	case "inflate-catalog":
		err = cmd.InflateCatalog()
	case "deflate-catalog":
		err = cmd.DeflateCatalog()
	case "help", "-help", "--help", "-h", "--h":
		printHelp()
	default:
		log.Println("Unknown command:", os.Args[1])
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}
