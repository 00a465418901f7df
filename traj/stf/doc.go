/*
 * doc.go, part of trajstat.
 *
 * Copyright 2024 The trajstat Authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

/*
Package stf implements the simple trajectory format (STF), a compressed text trajectory format,
extended to carry the id and the periodic image counters of each particle.

STF aims to produce reasonably small files that are very easy to read and write, so readers and
writers can be implemented in other programming languages with little effort.

# Format

An STF file is compressed with z-standard (zstd), unless the last character of its name
selects another compression: 'l' (LZW), 'z' (gzip) or 'r' (raw DEFLATE). A STF file may
only contain ASCII symbols.

The file starts with a header, where each line is a key=value pair, and which ends with a line
that starts with the characters "**" followed by one or more spaces, and the number of
particles per frame. The header must have a "prec" key, an integer greater than 0.
The "fields" key lists what each particle line contains, as comma-separated names.
The accepted values are "pos" (the default), "pos,id" and "pos,id,image".

After the header, the file has one line per particle, per frame. Each line contains the
x, y and z coordinates, each multiplied by 10 to the power of prec and rounded to an integer.
If the fields include "id", the integer id of the particle follows, and if they include "image",
3 integers with the number of times the particle has crossed the x, y and z box edges.
The particles may be stored in any order in a frame, but a given id appears only once per frame.

Each frame ends with a line starting with the character "*" (no whitespace before), optionally
followed by one or more spaces and 9 floating point numbers, the vectors defining the
simulation box. Only orthorhombic boxes (diagonal box matrices) are supported when loading
a trajectory.

The "**" sequence may only be used to terminate the header.

This package writes zstd with the best compression level and gives no option to change it.
*/
package stf
